package main

import (
	"context"

	"testdrive/pkg/app"
	"testdrive/pkg/config"
)

const ServiceName = "slots"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetStores()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting slot reservation service",
		"hold_store", cfg.HoldStore,
		"booking_store", cfg.BookingStore,
		"schedule_store", cfg.ScheduleStore(),
	)

	serverApp := app.NewApplication(cfg)
	if err := serverApp.SetApp(context.Background()); err != nil {
		cfg.Log.Fatal("Failed to initialize service", "error", err)
	}
	serverApp.Run()
}

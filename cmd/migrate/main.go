package main

import (
	"context"
	"time"

	"testdrive/pkg/app"
	"testdrive/pkg/config"
)

const JobName = "migrate"

const migrationTimeout = 120 * time.Second

func main() {
	cfg := config.Load(JobName)
	if err := run(cfg); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
	defer cancel()

	cfg.SetStores()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting migration job",
		"booking_store", cfg.BookingStore,
		"schedule_store", cfg.ScheduleStore(),
	)
	return app.Migrate(ctx, cfg)
}

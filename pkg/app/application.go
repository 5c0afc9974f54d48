package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mongoMigration "testdrive/internal/migrations/mongo"
	postgresMigration "testdrive/internal/migrations/postgres"
	"testdrive/internal/slots/handler"
	"testdrive/internal/slots/notifier"
	"testdrive/internal/slots/repository"
	"testdrive/internal/slots/service"
	"testdrive/internal/slots/sweeper"
	"testdrive/internal/slots/validator"
	"testdrive/pkg/clock"
	"testdrive/pkg/config"
	"testdrive/pkg/contracts"
	"testdrive/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type Application struct {
	cfg              *config.Config
	server           *http.Server
	idempotencyStore middleware.IdempotencyStore
	rateLimiter      *middleware.SessionRateLimiter
	notifier         notifier.Notifier
	sweeper          *sweeper.Sweeper
	healthHandler    http.Handler
	appHttpHandler   http.Handler
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{cfg: cfg}
}

// SetApp builds the slot service on top of the connections cfg.SetStores
// opened.
func (a *Application) SetApp(ctx context.Context) error {
	if a.cfg.MigrateOnStart {
		if err := Migrate(ctx, a.cfg); err != nil {
			return err
		}
	} else {
		a.checkBookingIndexes(ctx)
	}

	n, err := notifier.New(a.cfg)
	if err != nil {
		return fmt.Errorf("failed to create notifier: %w", err)
	}
	a.notifier = n

	stores := repository.NewStores(a.cfg)
	slotValidator := validator.NewSlotValidator(a.cfg.Log)
	clk := clock.Real{}

	scheduleService := service.NewScheduleService(stores.Schedules, slotValidator, a.notifier, clk, a.cfg)
	availabilityService := service.NewAvailabilityService(stores.Holds, stores.Bookings, scheduleService, slotValidator, a.notifier, clk, a.cfg)
	bookingService := service.NewBookingService(stores.Bookings, stores.Holds, scheduleService, slotValidator, a.notifier, clk, a.cfg)

	a.sweeper = sweeper.New(availabilityService, a.cfg.SweepInterval, a.cfg.WriteTimeout, a.cfg.Log.With("component", "sweeper"))

	routes := handler.Routes{
		handler.NewSlotHandler(availabilityService, a.cfg.Log),
		handler.NewBookingHandler(bookingService, a.cfg.Log),
		handler.NewScheduleHandler(scheduleService, a.cfg.Log),
	}

	a.setHealthHandler()
	a.setAppHandler(routes)
	a.setAppServer()
	return nil
}

// checkBookingIndexes warns when Mongo bookings lack the unique slot index.
// Without it two replicas can book the same slot.
func (a *Application) checkBookingIndexes(ctx context.Context) {
	if a.cfg.BookingStore != config.StoreMongo || a.cfg.Client.Mongo == nil {
		return
	}
	db := a.cfg.Client.Mongo.Database(a.cfg.MongoDatabaseName)
	if err := mongoMigration.VerifyBookingIndexes(ctx, db); err != nil {
		a.cfg.Log.Warn("Bookings collection is not migrated, double bookings are possible; run the migrate command or set MIGRATE_ON_START",
			"database", a.cfg.MongoDatabaseName,
			"error", err,
		)
	}
}

// Migrate prepares every store the configuration selects.
func Migrate(ctx context.Context, cfg *config.Config) error {
	if cfg.Client.Mongo != nil {
		db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
		if err := mongoMigration.RunMigration(ctx, db, cfg.Log); err != nil {
			return fmt.Errorf("mongo migration failed: %w", err)
		}
	}
	if cfg.Client.Postgres != nil {
		if err := postgresMigration.RunMigration(ctx, cfg.Client.Postgres, cfg.Log); err != nil {
			return fmt.Errorf("postgres migration failed: %w", err)
		}
	}
	return nil
}

func (a *Application) setHealthHandler() {
	healthRouter := httprouter.New()
	healthHandler := handler.NewHealthHandler(a.cfg.Client, a.cfg.Log)
	healthHandler.RegisterRoutes(healthRouter)

	var healthHTTPHandler http.Handler = healthRouter
	healthHTTPHandler = middleware.RequestLogging(a.cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(a.cfg.Log)(healthHTTPHandler)
	a.healthHandler = healthHTTPHandler
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(appHandler contracts.Handler) {
	appRouter := httprouter.New()
	appHandler.RegisterRoutes(appRouter)

	if a.cfg.Client.Redis != nil {
		a.idempotencyStore = middleware.NewRedisIdempotencyStore(a.cfg.Client.Redis, a.cfg.IdempotencyTTL, a.cfg.Log)
	} else {
		a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	}
	a.rateLimiter = middleware.NewSessionRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		middleware.DefaultKeyExtractor,
		a.cfg.Log,
	)

	var appHttpHandler http.Handler = appRouter
	appHttpHandler = middleware.Idempotency(a.idempotencyStore, middleware.DefaultIdempotencyHeader, handler.PathPrefix)(appHttpHandler)
	appHttpHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(appHttpHandler)
	appHttpHandler = middleware.SessionRateLimit(a.rateLimiter)(appHttpHandler)
	appHttpHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHttpHandler)
	appHttpHandler = middleware.RequestLogging(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.Recovery(a.cfg.Log)(appHttpHandler)
	a.appHttpHandler = appHttpHandler
	a.cfg.Log.Info("Application endpoints configured with full middleware stack")
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	mux.Handle("/", a.appHttpHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Handler exposes the full routing tree, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

func (a *Application) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.sweeper.Start(ctx)

	serverErrors := make(chan error, 1)
	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			a.stopWorkers()
			a.cfg.Log.Fatal("HTTP server failed", "error", err)
		}

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Error("Could not stop server gracefully", "error", err)
		}
	}

	a.stopWorkers()
	a.cfg.Log.Info("Server stopped gracefully")
}

// stopWorkers runs after the server stops accepting requests, so pending
// change notifications are flushed before the store connections close.
func (a *Application) stopWorkers() {
	a.cfg.Log.Info("Stopping background workers...")
	a.sweeper.Stop()
	a.idempotencyStore.Stop()
	a.rateLimiter.Stop()
	if err := a.notifier.Close(); err != nil {
		a.cfg.Log.Error("Failed to close notifier", "error", err)
	}
	a.cfg.Log.Info("Background workers stopped")
}

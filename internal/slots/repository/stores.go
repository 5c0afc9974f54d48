package repository

import (
	"testdrive/pkg/config"
)

type Stores struct {
	Holds     HoldRepository
	Bookings  BookingRepository
	Schedules ScheduleRepository
}

// NewStores builds the repositories selected by HOLD_STORE and BOOKING_STORE.
// cfg.SetStores must have opened the matching connections.
func NewStores(cfg *config.Config) Stores {
	var stores Stores

	switch cfg.HoldStore {
	case config.StoreRedis:
		stores.Holds = NewRedisHoldRepository(cfg.Client.Redis)
	case config.StoreMemory:
		stores.Holds = NewMemoryHoldRepository()
	default:
		stores.Holds = NewMongoHoldRepository(cfg)
	}

	switch cfg.BookingStore {
	case config.StorePostgres:
		stores.Bookings = NewPostgresBookingRepository(cfg.Client.Postgres, cfg.ReadTimeout, cfg.WriteTimeout)
	case config.StoreMemory:
		stores.Bookings = NewMemoryBookingRepository()
	default:
		stores.Bookings = NewMongoBookingRepository(cfg)
	}

	if cfg.ScheduleStore() == config.StoreMemory {
		stores.Schedules = NewMemoryScheduleRepository()
	} else {
		stores.Schedules = NewMongoScheduleRepository(cfg)
	}

	return stores
}

package repository

import (
	"context"
	"time"

	"testdrive/pkg/model"
)

// HoldRepository stores at most one hold row per slot key. Insert is the only
// synchronization primitive the availability engine relies on.
type HoldRepository interface {
	// Insert fails with ErrHoldExists when any row, live or stale, has the key.
	Insert(ctx context.Context, hold *model.Hold) error
	Find(ctx context.Context, key model.SlotKey) (*model.Hold, error)
	// Refresh rewrites the timestamps of hold's row only while it is owned by
	// hold.SessionID. Returns ErrNotFound otherwise.
	Refresh(ctx context.Context, hold *model.Hold) error
	// Delete removes the row only while it is owned by sessionID.
	Delete(ctx context.Context, key model.SlotKey, sessionID string) (bool, error)
	// DeleteSuperseded removes the row at key only while it is owned by
	// newer.SessionID and precedes newer. Two racing grants of one session
	// therefore never remove each other.
	DeleteSuperseded(ctx context.Context, key model.SlotKey, newer *model.Hold) (bool, error)
	DeleteIfExpired(ctx context.Context, key model.SlotKey, now time.Time) (bool, error)
	DeleteBySession(ctx context.Context, sessionID string) ([]model.SlotKey, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	FindByResourceAndDate(ctx context.Context, resourceID, date string) ([]*model.Hold, error)
}

// BookingRepository enforces at most one booking per slot key.
type BookingRepository interface {
	Exists(ctx context.Context, key model.SlotKey) (bool, error)
	// Create fails with ErrBookingExists when the slot key is already booked.
	Create(ctx context.Context, booking *model.Booking) error
	FindByResourceAndDate(ctx context.Context, resourceID, date string) ([]*model.Booking, error)
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}

type ScheduleRepository interface {
	Get(ctx context.Context, id string) (*model.Schedule, error)
	Save(ctx context.Context, schedule *model.Schedule) error
}

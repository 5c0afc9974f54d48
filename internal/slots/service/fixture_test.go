package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"testdrive/internal/slots/notifier"
	"testdrive/internal/slots/repository"
	"testdrive/internal/slots/validator"
	"testdrive/pkg/clock"
	"testdrive/pkg/config"
	"testdrive/pkg/logger"
	"testdrive/pkg/model"
)

var (
	start   = time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	slotA   = model.SlotKey{ResourceID: "car1", Date: "2025-12-05", TimeLabel: "10:00 AM"}
	slotB   = model.SlotKey{ResourceID: "car1", Date: "2025-12-05", TimeLabel: "10:20 AM"}
	errIO   = errors.New("i/o timeout")
	holdTTL = 6 * time.Minute
)

type fixture struct {
	clock     *clock.Fake
	holds     repository.HoldRepository
	bookings  repository.BookingRepository
	schedules repository.ScheduleRepository
	notes     *notifier.Recorder

	schedule     ScheduleService
	availability AvailabilityService
	booking      BookingService
}

type fixtureOption func(f *fixture)

func withHolds(h repository.HoldRepository) fixtureOption {
	return func(f *fixture) { f.holds = h }
}

func withBookings(b repository.BookingRepository) fixtureOption {
	return func(f *fixture) { f.bookings = b }
}

func withSchedules(r repository.ScheduleRepository) fixtureOption {
	return func(f *fixture) { f.schedules = r }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	cfg := &config.Config{
		Log:          logger.Discard(),
		HoldDuration: holdTTL,
	}
	f := &fixture{
		clock:     clock.NewFake(start),
		holds:     repository.NewMemoryHoldRepository(),
		bookings:  repository.NewMemoryBookingRepository(),
		schedules: repository.NewMemoryScheduleRepository(),
		notes:     &notifier.Recorder{},
	}
	for _, opt := range opts {
		opt(f)
	}

	v := validator.NewSlotValidator(cfg.Log)
	f.schedule = NewScheduleService(f.schedules, v, f.notes, f.clock, cfg)
	f.availability = NewAvailabilityService(f.holds, f.bookings, f.schedule, v, f.notes, f.clock, cfg)
	f.booking = NewBookingService(f.bookings, f.holds, f.schedule, v, f.notes, f.clock, cfg)
	return f
}

func registrant() model.Registrant {
	return model.Registrant{
		FirstName:       "Jane",
		LastName:        "Doe",
		Email:           "jane@example.com",
		Phone:           "(650) 253-0000",
		HasValidLicense: true,
		Signature:       "data:image/png;base64,AAAA",
		AgreedToTOS:     true,
	}
}

func finalizeRequest(key model.SlotKey) *model.FinalizeRequest {
	return &model.FinalizeRequest{SlotKey: key, Registrant: registrant()}
}

// flakyHolds wraps a hold repository and lets a test override single calls.
type flakyHolds struct {
	repository.HoldRepository
	findByGrid    func(ctx context.Context, resourceID, date string) ([]*model.Hold, error)
	deleteExpired func(ctx context.Context, now time.Time) (int64, error)
	insert        func(ctx context.Context, hold *model.Hold) error
}

func (f *flakyHolds) FindByResourceAndDate(ctx context.Context, resourceID, date string) ([]*model.Hold, error) {
	if f.findByGrid != nil {
		return f.findByGrid(ctx, resourceID, date)
	}
	return f.HoldRepository.FindByResourceAndDate(ctx, resourceID, date)
}

func (f *flakyHolds) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if f.deleteExpired != nil {
		return f.deleteExpired(ctx, now)
	}
	return f.HoldRepository.DeleteExpired(ctx, now)
}

func (f *flakyHolds) Insert(ctx context.Context, hold *model.Hold) error {
	if f.insert != nil {
		return f.insert(ctx, hold)
	}
	return f.HoldRepository.Insert(ctx, hold)
}

type failingSchedules struct {
	err error
}

func (f *failingSchedules) Get(context.Context, string) (*model.Schedule, error) {
	return nil, f.err
}

func (f *failingSchedules) Save(context.Context, *model.Schedule) error {
	return f.err
}

// racingBookings reports no booking on the first Exists call and then
// behaves like the wrapped repository.
type racingBookings struct {
	repository.BookingRepository
	calls  atomic.Int32
	before func()
	exists func(ctx context.Context, key model.SlotKey) (bool, error)
	create func(ctx context.Context, booking *model.Booking) error
}

func (r *racingBookings) Exists(ctx context.Context, key model.SlotKey) (bool, error) {
	if r.calls.Add(1) == 1 && r.before != nil {
		defer r.before()
		return false, nil
	}
	if r.exists != nil {
		return r.exists(ctx, key)
	}
	return r.BookingRepository.Exists(ctx, key)
}

func (r *racingBookings) Create(ctx context.Context, booking *model.Booking) error {
	if r.create != nil {
		return r.create(ctx, booking)
	}
	return r.BookingRepository.Create(ctx, booking)
}

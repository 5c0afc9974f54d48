package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	slotserrors "testdrive/internal/slots/errors"
	"testdrive/pkg/model"

	"github.com/google/uuid"
)

// MemoryHoldRepository keeps holds in process. A single mutex gives Insert the
// same insert-if-absent contract the database stores provide.
type MemoryHoldRepository struct {
	mu    sync.Mutex
	holds map[string]model.Hold
}

func NewMemoryHoldRepository() *MemoryHoldRepository {
	return &MemoryHoldRepository{holds: make(map[string]model.Hold)}
}

func (r *MemoryHoldRepository) Insert(_ context.Context, hold *model.Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := hold.SlotKey.ID()
	if _, ok := r.holds[id]; ok {
		return slotserrors.ErrHoldExists
	}
	hold.ID = id
	r.holds[id] = *hold
	return nil
}

func (r *MemoryHoldRepository) Find(_ context.Context, key model.SlotKey) (*model.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hold, ok := r.holds[key.ID()]
	if !ok {
		return nil, slotserrors.ErrNotFound
	}
	return &hold, nil
}

func (r *MemoryHoldRepository) Refresh(_ context.Context, hold *model.Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := hold.SlotKey.ID()
	existing, ok := r.holds[id]
	if !ok || !existing.OwnedBy(hold.SessionID) {
		return slotserrors.ErrNotFound
	}
	existing.CreatedAt = hold.CreatedAt
	existing.ExpiresAt = hold.ExpiresAt
	r.holds[id] = existing
	hold.ID = id
	return nil
}

func (r *MemoryHoldRepository) Delete(_ context.Context, key model.SlotKey, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := key.ID()
	existing, ok := r.holds[id]
	if !ok || !existing.OwnedBy(sessionID) {
		return false, nil
	}
	delete(r.holds, id)
	return true, nil
}

func (r *MemoryHoldRepository) DeleteSuperseded(_ context.Context, key model.SlotKey, newer *model.Hold) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := key.ID()
	existing, ok := r.holds[id]
	if !ok || !existing.OwnedBy(newer.SessionID) || !existing.Precedes(newer) {
		return false, nil
	}
	delete(r.holds, id)
	return true, nil
}

func (r *MemoryHoldRepository) DeleteIfExpired(_ context.Context, key model.SlotKey, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := key.ID()
	existing, ok := r.holds[id]
	if !ok || existing.IsLive(now) {
		return false, nil
	}
	delete(r.holds, id)
	return true, nil
}

func (r *MemoryHoldRepository) DeleteBySession(_ context.Context, sessionID string) ([]model.SlotKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var released []model.SlotKey
	for id, hold := range r.holds {
		if hold.OwnedBy(sessionID) {
			released = append(released, hold.SlotKey)
			delete(r.holds, id)
		}
	}
	return released, nil
}

func (r *MemoryHoldRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for id, hold := range r.holds {
		if !hold.IsLive(now) {
			delete(r.holds, id)
			removed++
		}
	}
	return removed, nil
}

func (r *MemoryHoldRepository) FindByResourceAndDate(_ context.Context, resourceID, date string) ([]*model.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	holds := make([]*model.Hold, 0)
	for _, hold := range r.holds {
		if hold.ResourceID == resourceID && hold.Date == date {
			h := hold
			holds = append(holds, &h)
		}
	}
	return holds, nil
}

type MemoryBookingRepository struct {
	mu       sync.Mutex
	bookings map[string]model.Booking
	bySlot   map[string]string
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		bookings: make(map[string]model.Booking),
		bySlot:   make(map[string]string),
	}
}

func (r *MemoryBookingRepository) Exists(_ context.Context, key model.SlotKey) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.bySlot[key.ID()]
	return ok, nil
}

func (r *MemoryBookingRepository) Create(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot := booking.SlotKey.ID()
	if _, ok := r.bySlot[slot]; ok {
		return slotserrors.ErrBookingExists
	}
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	r.bookings[booking.ID] = *booking
	r.bySlot[slot] = booking.ID
	return nil
}

func (r *MemoryBookingRepository) FindByResourceAndDate(_ context.Context, resourceID, date string) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bookings := make([]*model.Booking, 0)
	for _, booking := range r.bookings {
		if booking.ResourceID == resourceID && booking.Date == date {
			b := booking
			bookings = append(bookings, &b)
		}
	}
	return bookings, nil
}

func (r *MemoryBookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, invalidID(id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, slotserrors.ErrNotFound
	}
	return &booking, nil
}

func (r *MemoryBookingRepository) FindAll(_ context.Context, limit int, offset int64) ([]*model.Booking, error) {
	r.mu.Lock()
	all := make([]*model.Booking, 0, len(r.bookings))
	for _, booking := range r.bookings {
		b := booking
		all = append(all, &b)
	}
	r.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	if offset >= int64(len(all)) {
		return []*model.Booking{}, nil
	}
	end := int(offset) + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *MemoryBookingRepository) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.bookings)), nil
}

func (r *MemoryBookingRepository) Delete(_ context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return invalidID(id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return slotserrors.ErrNotFound
	}
	delete(r.bookings, id)
	delete(r.bySlot, booking.SlotKey.ID())
	return nil
}

type MemoryScheduleRepository struct {
	mu        sync.RWMutex
	schedules map[string]model.Schedule
}

func NewMemoryScheduleRepository() *MemoryScheduleRepository {
	return &MemoryScheduleRepository{schedules: make(map[string]model.Schedule)}
}

func (r *MemoryScheduleRepository) Get(_ context.Context, id string) (*model.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schedule, ok := r.schedules[id]
	if !ok {
		return nil, slotserrors.ErrScheduleNotFound
	}
	return cloneSchedule(schedule), nil
}

func (r *MemoryScheduleRepository) Save(_ context.Context, schedule *model.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[schedule.ID] = *cloneSchedule(*schedule)
	return nil
}

func cloneSchedule(s model.Schedule) *model.Schedule {
	s.Dates = append([]string(nil), s.Dates...)
	s.TimeSlots = append([]string(nil), s.TimeSlots...)
	s.Vehicles = append([]model.Vehicle(nil), s.Vehicles...)
	return &s
}

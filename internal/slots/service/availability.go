package service

import (
	"context"
	"errors"
	"sync"
	"time"

	slotserrors "testdrive/internal/slots/errors"
	"testdrive/internal/slots/notifier"
	"testdrive/internal/slots/repository"
	"testdrive/internal/slots/validator"
	"testdrive/pkg/clock"
	"testdrive/pkg/config"
	apperrors "testdrive/pkg/errors"
	"testdrive/pkg/model"
)

// maxAcquireAttempts bounds the insert loop: one retry after clearing a
// stale row, then give up.
const maxAcquireAttempts = 2

type AvailabilityService interface {
	GetSlotStatus(ctx context.Context, resourceID, date, sessionID string) (*model.SlotStatus, error)
	AcquireHold(ctx context.Context, key model.SlotKey, sessionID string) (model.HoldResult, error)
	ReleaseHold(ctx context.Context, key model.SlotKey, sessionID string) error
	ReleaseAllHolds(ctx context.Context, sessionID string) error
	SweepExpired(ctx context.Context) (int64, error)
}

type availabilityService struct {
	keyResolver
	holds    repository.HoldRepository
	bookings repository.BookingRepository
	notifier notifier.Notifier
	clock    clock.Clock
	cfg      *config.Config
}

func NewAvailabilityService(
	holds repository.HoldRepository,
	bookings repository.BookingRepository,
	schedules ScheduleService,
	validator *validator.SlotValidator,
	notifier notifier.Notifier,
	clock clock.Clock,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		keyResolver: keyResolver{schedules: schedules, validator: validator},
		holds:       holds,
		bookings:    bookings,
		notifier:    notifier,
		clock:       clock,
		cfg:         cfg,
	}
}

// GetSlotStatus sweeps expired holds, then partitions the configured labels
// into booked, held by another session, held by sessionID, and free. On a
// store failure it returns a status with every label unavailable together
// with the error.
func (s *availabilityService) GetSlotStatus(ctx context.Context, resourceID, date, sessionID string) (*model.SlotStatus, error) {
	schedule, err := s.resolveGrid(ctx, resourceID, date)
	if err != nil {
		if apperrors.IsRetryable(err) {
			// Without the schedule the real grid is unknown; close the default one.
			return model.ClosedSlotStatus(resourceID, date, DefaultSchedule().TimeSlots, s.clock.Now()), err
		}
		return nil, err
	}
	labels := schedule.TimeSlots

	if _, err := s.SweepExpired(ctx); err != nil {
		return model.ClosedSlotStatus(resourceID, date, labels, s.clock.Now()), err
	}
	now := s.clock.Now()

	var bookings []*model.Booking
	var holds []*model.Hold
	var errBookings, errHolds error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		bookings, errBookings = s.bookings.FindByResourceAndDate(ctx, resourceID, date)
	}()

	go func() {
		defer wg.Done()
		holds, errHolds = s.holds.FindByResourceAndDate(ctx, resourceID, date)
	}()

	wg.Wait()
	if errBookings != nil {
		return model.ClosedSlotStatus(resourceID, date, labels, now),
			storeFailure(s.cfg, "list bookings", errBookings, "resource_id", resourceID, "date", date)
	}
	if errHolds != nil {
		return model.ClosedSlotStatus(resourceID, date, labels, now),
			storeFailure(s.cfg, "list holds", errHolds, "resource_id", resourceID, "date", date)
	}

	status, mine, superseded := partition(resourceID, date, sessionID, labels, bookings, holds, now)
	for _, h := range superseded {
		s.releaseSuperseded(ctx, h.SlotKey, mine)
	}
	return status, nil
}

// partition splits labels by state. A session that somehow owns several live
// holds on the grid sees only the latest as its own; the earlier ones are
// returned as superseded and reported free to that session, which may
// re-acquire them.
func partition(resourceID, date, sessionID string, labels []string, bookings []*model.Booking, holds []*model.Hold, now time.Time) (*model.SlotStatus, *model.Hold, []*model.Hold) {
	booked := make(map[string]bool, len(bookings))
	for _, b := range bookings {
		booked[b.TimeLabel] = true
	}

	onGrid := make(map[string]bool, len(labels))
	for _, label := range labels {
		onGrid[label] = true
	}

	held := make(map[string]*model.Hold, len(holds))
	var mine *model.Hold
	for _, h := range holds {
		if !h.IsLive(now) {
			continue
		}
		held[h.TimeLabel] = h
		if sessionID == "" || !h.OwnedBy(sessionID) || booked[h.TimeLabel] || !onGrid[h.TimeLabel] {
			continue
		}
		if mine == nil || mine.Precedes(h) {
			mine = h
		}
	}
	var superseded []*model.Hold

	status := &model.SlotStatus{
		ResourceID:  resourceID,
		Date:        date,
		Booked:      []string{},
		HeldByOther: []string{},
		Free:        []string{},
		CheckedAt:   now,
	}
	for _, label := range labels {
		hold, isHeld := held[label]
		switch {
		case booked[label]:
			status.Booked = append(status.Booked, label)
		case isHeld && hold == mine:
			status.MyHold = &model.MyHold{TimeLabel: label, ExpiresAt: hold.ExpiresAt}
		case isHeld && sessionID != "" && hold.OwnedBy(sessionID):
			superseded = append(superseded, hold)
			status.Free = append(status.Free, label)
		case isHeld:
			status.HeldByOther = append(status.HeldByOther, label)
		default:
			status.Free = append(status.Free, label)
		}
	}
	return status, mine, superseded
}

// AcquireHold grants sessionID a fresh hold on key, refreshing one it already
// owns. The hold store's insert-if-absent is the only synchronization.
func (s *availabilityService) AcquireHold(ctx context.Context, key model.SlotKey, sessionID string) (model.HoldResult, error) {
	if sessionID == "" {
		return model.HoldResult{}, apperrors.MissingSession()
	}
	key, _, err := s.resolveKey(ctx, key)
	if err != nil {
		return model.HoldResult{}, err
	}

	booked, err := s.bookings.Exists(ctx, key)
	if err != nil {
		return model.HoldResult{}, storeFailure(s.cfg, "check booking", err, "slot", key.ID())
	}
	if booked {
		return slotUnavailable(), nil
	}

	for attempt := 1; attempt <= maxAcquireAttempts; attempt++ {
		now := s.clock.Now()
		hold := model.NewHold(key, sessionID, now, s.cfg.HoldDuration)

		err := s.holds.Insert(ctx, hold)
		if err == nil {
			return s.confirmGrant(ctx, hold)
		}
		if !errors.Is(err, slotserrors.ErrHoldExists) {
			return model.HoldResult{}, storeFailure(s.cfg, "insert hold", err, "slot", key.ID())
		}

		existing, err := s.holds.Find(ctx, key)
		if errors.Is(err, slotserrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return model.HoldResult{}, storeFailure(s.cfg, "read hold", err, "slot", key.ID())
		}

		if existing.OwnedBy(sessionID) {
			err := s.holds.Refresh(ctx, hold)
			if errors.Is(err, slotserrors.ErrNotFound) {
				continue
			}
			if err != nil {
				return model.HoldResult{}, storeFailure(s.cfg, "refresh hold", err, "slot", key.ID())
			}
			s.notify(ctx, model.ActionHoldRefreshed, key, sessionID)
			return model.HoldResult{Outcome: model.HoldGranted, Hold: hold}, nil
		}

		if existing.IsLive(now) {
			return slotUnavailable(), nil
		}

		s.cfg.Log.Debug("Clearing stale hold", "slot", key.ID(), "owner", existing.SessionID, "expired_at", existing.ExpiresAt)
		if _, err := s.holds.DeleteIfExpired(ctx, key, now); err != nil {
			return model.HoldResult{}, storeFailure(s.cfg, "delete stale hold", err, "slot", key.ID())
		}
	}

	return slotUnavailable(), nil
}

// confirmGrant re-checks for a booking that committed between the pre-check
// and the insert, and withdraws the new hold if one did.
func (s *availabilityService) confirmGrant(ctx context.Context, hold *model.Hold) (model.HoldResult, error) {
	booked, err := s.bookings.Exists(ctx, hold.SlotKey)
	if err != nil || booked {
		if _, delErr := s.holds.Delete(ctx, hold.SlotKey, hold.SessionID); delErr != nil {
			s.cfg.Log.Warn("Failed to withdraw hold", "slot", hold.ID, "error", delErr)
		}
		if err != nil {
			return model.HoldResult{}, storeFailure(s.cfg, "check booking", err, "slot", hold.ID)
		}
		return slotUnavailable(), nil
	}

	s.releaseOtherHolds(ctx, hold)
	s.notify(ctx, model.ActionHoldAcquired, hold.SlotKey, hold.SessionID)

	s.cfg.Log.Debug("Hold granted",
		"slot", hold.ID,
		"session_id", hold.SessionID,
		"expires_at", hold.ExpiresAt,
	)
	return model.HoldResult{Outcome: model.HoldGranted, Hold: hold}, nil
}

// releaseOtherHolds drops the session's earlier selections on the same
// vehicle and date. Only holds that precede the new one are removed, so of
// two concurrent grants the later survives. Failures are left to expire.
func (s *availabilityService) releaseOtherHolds(ctx context.Context, hold *model.Hold) {
	holds, err := s.holds.FindByResourceAndDate(ctx, hold.ResourceID, hold.Date)
	if err != nil {
		s.cfg.Log.Warn("Failed to list session holds", "slot", hold.ID, "error", err)
		return
	}
	for _, h := range holds {
		if h.TimeLabel == hold.TimeLabel || !h.OwnedBy(hold.SessionID) {
			continue
		}
		s.releaseSuperseded(ctx, h.SlotKey, hold)
	}
}

func (s *availabilityService) releaseSuperseded(ctx context.Context, key model.SlotKey, newer *model.Hold) {
	deleted, err := s.holds.DeleteSuperseded(ctx, key, newer)
	if err != nil {
		s.cfg.Log.Warn("Failed to release previous hold", "slot", key.ID(), "error", err)
		return
	}
	if deleted {
		s.notify(ctx, model.ActionHoldReleased, key, newer.SessionID)
	}
}

// ReleaseHold is idempotent and never touches a hold owned by another session.
func (s *availabilityService) ReleaseHold(ctx context.Context, key model.SlotKey, sessionID string) error {
	if sessionID == "" {
		return apperrors.MissingSession()
	}
	key = normalizeKey(key)
	if key.ResourceID == "" || key.Date == "" || key.TimeLabel == "" {
		return apperrors.InvalidSlotKey("resource_id, date and time_label are required")
	}

	deleted, err := s.holds.Delete(ctx, key, sessionID)
	if err != nil {
		return storeFailure(s.cfg, "release hold", err, "slot", key.ID())
	}
	if deleted {
		s.notify(ctx, model.ActionHoldReleased, key, sessionID)
	}
	return nil
}

func (s *availabilityService) ReleaseAllHolds(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperrors.MissingSession()
	}

	released, err := s.holds.DeleteBySession(ctx, sessionID)
	for _, key := range released {
		s.notify(ctx, model.ActionHoldReleased, key, sessionID)
	}
	if err != nil {
		return storeFailure(s.cfg, "release session holds", err, "session_id", sessionID)
	}

	if len(released) > 0 {
		s.cfg.Log.Debug("Released session holds", "session_id", sessionID, "count", len(released))
	}
	return nil
}

func (s *availabilityService) SweepExpired(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	removed, err := s.holds.DeleteExpired(ctx, now)
	if err != nil {
		return 0, storeFailure(s.cfg, "sweep expired holds", err)
	}
	if removed > 0 {
		s.notifier.Notify(ctx, model.SlotChange{
			Kind:       model.ChangeKindHold,
			Action:     model.ActionHoldsSwept,
			OccurredAt: now,
		})
		s.cfg.Log.Debug("Swept expired holds", "count", removed)
	}
	return removed, nil
}

func (s *availabilityService) notify(ctx context.Context, action model.ChangeAction, key model.SlotKey, sessionID string) {
	s.notifier.Notify(ctx, model.SlotChange{
		Kind:       model.ChangeKindHold,
		Action:     action,
		ResourceID: key.ResourceID,
		Date:       key.Date,
		TimeLabel:  key.TimeLabel,
		SessionID:  sessionID,
		OccurredAt: s.clock.Now(),
	})
}

func slotUnavailable() model.HoldResult {
	return model.HoldResult{Outcome: model.HoldSlotUnavailable}
}

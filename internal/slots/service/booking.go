package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	slotserrors "testdrive/internal/slots/errors"
	"testdrive/internal/slots/notifier"
	"testdrive/internal/slots/repository"
	"testdrive/internal/slots/validator"
	"testdrive/pkg/clock"
	"testdrive/pkg/config"
	apperrors "testdrive/pkg/errors"
	"testdrive/pkg/model"
	"testdrive/pkg/sanitizer"

	"github.com/google/uuid"
)

const registrationIDPrefix = "TD-"

type BookingService interface {
	Finalize(ctx context.Context, req *model.FinalizeRequest, sessionID string) (model.FinalizeResult, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	Cancel(ctx context.Context, id string) error
}

type bookingService struct {
	keyResolver
	bookings repository.BookingRepository
	holds    repository.HoldRepository
	notifier notifier.Notifier
	clock    clock.Clock
	cfg      *config.Config
}

func NewBookingService(
	bookings repository.BookingRepository,
	holds repository.HoldRepository,
	schedules ScheduleService,
	validator *validator.SlotValidator,
	notifier notifier.Notifier,
	clock clock.Clock,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		keyResolver: keyResolver{schedules: schedules, validator: validator},
		bookings:    bookings,
		holds:       holds,
		notifier:    notifier,
		clock:       clock,
		cfg:         cfg,
	}
}

// Finalize turns a slot into a booking. Booking existence is the only gate:
// holding the slot is not required, and the caller's hold is released
// afterwards on a best-effort basis.
func (s *bookingService) Finalize(ctx context.Context, req *model.FinalizeRequest, sessionID string) (model.FinalizeResult, error) {
	req.SlotKey = normalizeKey(req.SlotKey)
	req.Registrant = sanitizer.SanitizeRegistrant(req.Registrant)

	key, schedule, err := s.resolveKey(ctx, req.SlotKey)
	if err != nil {
		return model.FinalizeResult{}, err
	}

	if err := s.validator.ValidateFinalize(req); err != nil {
		s.cfg.Log.Warn("Registration validation failed", "error", err)
		return model.FinalizeResult{}, apperrors.Validation("Registration validation failed", map[string]any{"error": err.Error()})
	}

	booked, err := s.bookings.Exists(ctx, key)
	if err != nil {
		return model.FinalizeResult{}, storeFailure(s.cfg, "check booking", err, "slot", key.ID())
	}
	if booked {
		s.cfg.Log.Info("Slot already booked", "slot", key.ID(), "session_id", sessionID)
		return model.FinalizeResult{Outcome: model.FinalizeSlotTaken}, nil
	}

	now := s.clock.Now()
	booking := &model.Booking{
		ID:             uuid.NewString(),
		RegistrationID: fmt.Sprintf("%s%d", registrationIDPrefix, now.UnixMilli()),
		SlotKey:        key,
		Vehicle:        schedule.Vehicle(key.ResourceID),
		Registrant:     req.Registrant,
		SessionID:      sessionID,
		CreatedAt:      now,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		if errors.Is(err, slotserrors.ErrBookingExists) {
			s.cfg.Log.Info("Lost booking race", "slot", key.ID(), "session_id", sessionID)
			return model.FinalizeResult{Outcome: model.FinalizeSlotTaken}, nil
		}
		return model.FinalizeResult{}, storeFailure(s.cfg, "create booking", err, "slot", key.ID())
	}

	if sessionID != "" {
		if _, err := s.holds.Delete(ctx, key, sessionID); err != nil {
			s.cfg.Log.Warn("Failed to release hold after booking", "slot", key.ID(), "session_id", sessionID, "error", err)
		}
	}

	s.notifier.Notify(ctx, model.SlotChange{
		Kind:       model.ChangeKindBooking,
		Action:     model.ActionBookingCreated,
		ResourceID: key.ResourceID,
		Date:       key.Date,
		TimeLabel:  key.TimeLabel,
		SessionID:  sessionID,
		OccurredAt: now,
	})

	s.cfg.Log.Info("Booking confirmed",
		"id", booking.ID,
		"registration_id", booking.RegistrationID,
		"slot", key.ID(),
	)
	return model.FinalizeResult{Outcome: model.FinalizeConfirmed, Booking: booking}, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}
	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.bookings.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.StoreUnavailable("count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.bookings.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.StoreUnavailable("list bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return bookings, count, nil
}

// Cancel deletes a booking, which makes its slot holdable again.
func (s *bookingService) Cancel(ctx context.Context, id string) error {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.bookings.Delete(ctx, booking.ID); err != nil {
		return s.lookupError(id, err)
	}

	s.notifier.Notify(ctx, model.SlotChange{
		Kind:       model.ChangeKindBooking,
		Action:     model.ActionBookingCancelled,
		ResourceID: booking.ResourceID,
		Date:       booking.Date,
		TimeLabel:  booking.TimeLabel,
		OccurredAt: s.clock.Now(),
	})

	s.cfg.Log.Info("Booking cancelled", "id", booking.ID, "slot", booking.SlotKey.ID())
	return nil
}

func (s *bookingService) lookupError(id string, err error) error {
	switch {
	case errors.Is(err, slotserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, slotserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	default:
		return storeFailure(s.cfg, "find booking", err, "id", id)
	}
}

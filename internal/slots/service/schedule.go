package service

import (
	"context"
	"errors"
	"sort"

	slotserrors "testdrive/internal/slots/errors"
	"testdrive/internal/slots/notifier"
	"testdrive/internal/slots/repository"
	"testdrive/internal/slots/validator"
	"testdrive/pkg/clock"
	"testdrive/pkg/config"
	apperrors "testdrive/pkg/errors"
	"testdrive/pkg/model"
	"testdrive/pkg/sanitizer"
	"testdrive/pkg/timeslot"
)

const (
	defaultDayStart        = "10:00 AM"
	defaultDayEnd          = "5:00 PM"
	defaultIntervalMinutes = 20
)

type ScheduleService interface {
	Get(ctx context.Context) (*model.Schedule, error)
	Update(ctx context.Context, schedule *model.Schedule) (*model.Schedule, error)
	GenerateTimeSlots(ctx context.Context, req *model.GenerateSlotsRequest) ([]string, error)
}

type scheduleService struct {
	repo      repository.ScheduleRepository
	validator *validator.SlotValidator
	notifier  notifier.Notifier
	clock     clock.Clock
	cfg       *config.Config
}

func NewScheduleService(
	repo repository.ScheduleRepository,
	validator *validator.SlotValidator,
	notifier notifier.Notifier,
	clock clock.Clock,
	cfg *config.Config,
) ScheduleService {
	return &scheduleService{
		repo:      repo,
		validator: validator,
		notifier:  notifier,
		clock:     clock,
		cfg:       cfg,
	}
}

// DefaultSchedule is served until an administrator saves one: every 20
// minutes from 10:00 AM to 5:00 PM, with no date or vehicle restriction.
func DefaultSchedule() *model.Schedule {
	labels, _ := timeslot.Generate(defaultDayStart, defaultDayEnd, defaultIntervalMinutes)
	return &model.Schedule{
		ID:        model.DefaultScheduleID,
		Dates:     []string{},
		TimeSlots: labels,
		Vehicles:  []model.Vehicle{},
	}
}

func (s *scheduleService) Get(ctx context.Context) (*model.Schedule, error) {
	schedule, err := s.repo.Get(ctx, model.DefaultScheduleID)
	if err != nil {
		if errors.Is(err, slotserrors.ErrScheduleNotFound) {
			return DefaultSchedule(), nil
		}
		s.cfg.Log.Error("Failed to load schedule", "error", err)
		return nil, apperrors.StoreUnavailable("load schedule", err)
	}
	return schedule, nil
}

func (s *scheduleService) Update(ctx context.Context, schedule *model.Schedule) (*model.Schedule, error) {
	schedule.ID = model.DefaultScheduleID
	s.sanitize(schedule)

	if err := s.validator.ValidateSchedule(schedule); err != nil {
		s.cfg.Log.Warn("Schedule validation failed", "error", err)
		return nil, apperrors.Validation("Schedule validation failed", map[string]any{"error": err.Error()})
	}

	schedule.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, schedule); err != nil {
		s.cfg.Log.Error("Failed to save schedule", "error", err)
		return nil, apperrors.StoreUnavailable("save schedule", err)
	}

	s.notifier.Notify(ctx, model.SlotChange{
		Kind:       model.ChangeKindSchedule,
		Action:     model.ActionScheduleUpdated,
		OccurredAt: schedule.UpdatedAt,
	})

	s.cfg.Log.Info("Schedule updated",
		"dates", len(schedule.Dates),
		"time_slots", len(schedule.TimeSlots),
		"vehicles", len(schedule.Vehicles),
	)
	return schedule, nil
}

func (s *scheduleService) GenerateTimeSlots(_ context.Context, req *model.GenerateSlotsRequest) ([]string, error) {
	if err := s.validator.ValidateGenerate(req); err != nil {
		return nil, apperrors.Validation("Time slot range validation failed", map[string]any{"error": err.Error()})
	}

	labels, err := timeslot.Generate(req.Start, req.End, req.IntervalMinutes)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	return labels, nil
}

// sanitize normalizes labels ("10:00am" -> "10:00 AM"), drops duplicates and
// sorts labels and dates. Unparsable labels are kept for the validator.
func (s *scheduleService) sanitize(schedule *model.Schedule) {
	schedule.TimeSlots = timeslot.Sort(sanitizer.NormalizeStringSlice(schedule.TimeSlots, normalizeLabel))

	schedule.Dates = sanitizer.NormalizeStringSlice(schedule.Dates, sanitizer.TrimAndNormalize)
	sort.Strings(schedule.Dates)

	for i := range schedule.Vehicles {
		v := &schedule.Vehicles[i]
		v.ID = sanitizer.TrimAndNormalize(v.ID)
		v.Name = sanitizer.TrimAndNormalize(v.Name)
		v.Model = sanitizer.TrimAndNormalize(v.Model)
		v.Type = sanitizer.TrimAndNormalize(v.Type)
		v.Image = sanitizer.TrimAndNormalize(v.Image)
	}
	if schedule.Vehicles == nil {
		schedule.Vehicles = []model.Vehicle{}
	}
}

func normalizeLabel(label string) string {
	normalized, err := timeslot.Normalize(label)
	if err != nil {
		return sanitizer.TrimAndNormalize(label)
	}
	return normalized
}

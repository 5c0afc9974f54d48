package service

import (
	"context"
	"fmt"
	"strings"

	"testdrive/internal/slots/validator"
	"testdrive/pkg/config"
	apperrors "testdrive/pkg/errors"
	"testdrive/pkg/model"
	"testdrive/pkg/timeslot"
)

// keyResolver checks requested slots against the configured schedule.
type keyResolver struct {
	schedules ScheduleService
	validator *validator.SlotValidator
}

// normalizeKey trims the key and rewrites a parsable label to its canonical
// form so "10:00am" and "10:00 AM" address the same slot.
func normalizeKey(key model.SlotKey) model.SlotKey {
	key.ResourceID = strings.TrimSpace(key.ResourceID)
	key.Date = strings.TrimSpace(key.Date)
	key.TimeLabel = strings.TrimSpace(key.TimeLabel)
	if label, err := timeslot.Normalize(key.TimeLabel); err == nil {
		key.TimeLabel = label
	}
	return key
}

func (r *keyResolver) resolveGrid(ctx context.Context, resourceID, date string) (*model.Schedule, error) {
	if resourceID == "" || date == "" {
		return nil, apperrors.InvalidSlotKey("resource_id and date are required")
	}
	if !timeslot.ValidDate(date) {
		return nil, apperrors.InvalidSlotKey(fmt.Sprintf("date %q must be in YYYY-MM-DD format", date))
	}

	schedule, err := r.schedules.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !schedule.HasVehicle(resourceID) {
		return nil, apperrors.InvalidSlotKey(fmt.Sprintf("vehicle %q is not part of this event", resourceID))
	}
	if !schedule.HasDate(date) {
		return nil, apperrors.InvalidSlotKey(fmt.Sprintf("date %s is not part of this event", date))
	}
	return schedule, nil
}

func (r *keyResolver) resolveKey(ctx context.Context, key model.SlotKey) (model.SlotKey, *model.Schedule, error) {
	key = normalizeKey(key)
	if err := r.validator.ValidateSlotKey(key); err != nil {
		return key, nil, apperrors.InvalidSlotKey(err.Error())
	}

	schedule, err := r.resolveGrid(ctx, key.ResourceID, key.Date)
	if err != nil {
		return key, nil, err
	}
	if !schedule.HasTimeSlot(key.TimeLabel) {
		return key, nil, apperrors.InvalidSlotKey(fmt.Sprintf("time slot %s is not part of this event", key.TimeLabel))
	}
	return key, schedule, nil
}

func storeFailure(cfg *config.Config, operation string, err error, args ...any) error {
	cfg.Log.Error("Slot store failure", append([]any{"operation", operation, "error", err}, args...)...)
	return apperrors.StoreUnavailable(operation, err)
}

package service

import (
	"context"
	"testing"

	apperrors "testdrive/pkg/errors"
	"testdrive/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchedule(t *testing.T) {
	schedule := DefaultSchedule()

	require.Len(t, schedule.TimeSlots, 22)
	assert.Equal(t, "10:00 AM", schedule.TimeSlots[0])
	assert.Equal(t, "12:00 PM", schedule.TimeSlots[6])
	assert.Equal(t, "5:00 PM", schedule.TimeSlots[21])
	assert.True(t, schedule.HasDate("2030-01-01"))
	assert.True(t, schedule.HasVehicle("anything"))
}

func TestScheduleService_GetFallsBackToDefault(t *testing.T) {
	f := newFixture(t)

	schedule, err := f.schedule.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule().TimeSlots, schedule.TimeSlots)
}

func TestScheduleService_UpdateNormalizes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.schedule.Update(ctx, &model.Schedule{
		Dates:     []string{" 2025-12-06", "2025-12-05", "2025-12-05"},
		TimeSlots: []string{"2:00pm", "10:00 AM", "10:00am", " 9:40 AM "},
		Vehicles:  []model.Vehicle{{ID: " car1 ", Name: " Roadster "}},
	})
	require.NoError(t, err)

	assert.Equal(t, model.DefaultScheduleID, saved.ID)
	assert.Equal(t, []string{"2025-12-05", "2025-12-06"}, saved.Dates)
	assert.Equal(t, []string{"9:40 AM", "10:00 AM", "2:00 PM"}, saved.TimeSlots)
	assert.Equal(t, "car1", saved.Vehicles[0].ID)
	assert.Equal(t, start, saved.UpdatedAt)

	got, err := f.schedule.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved.TimeSlots, got.TimeSlots)

	assert.Equal(t, []model.ChangeAction{model.ActionScheduleUpdated}, f.notes.Actions())
}

func TestScheduleService_UpdateRejectsInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.schedule.Update(context.Background(), &model.Schedule{
		TimeSlots: []string{"10:00 AM", "lunch"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Empty(t, f.notes.Changes())
}

func TestScheduleService_GenerateTimeSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	labels, err := f.schedule.GenerateTimeSlots(ctx, &model.GenerateSlotsRequest{Start: "11:00 AM", End: "12:00 PM", IntervalMinutes: 30})
	require.NoError(t, err)
	assert.Equal(t, []string{"11:00 AM", "11:30 AM", "12:00 PM"}, labels)

	_, err = f.schedule.GenerateTimeSlots(ctx, &model.GenerateSlotsRequest{Start: "5:00 PM", End: "10:00 AM", IntervalMinutes: 30})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

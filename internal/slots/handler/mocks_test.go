package handler

import (
	"context"

	"testdrive/pkg/model"
)

type mockAvailabilityService struct {
	getSlotStatusFunc   func(ctx context.Context, resourceID, date, sessionID string) (*model.SlotStatus, error)
	acquireHoldFunc     func(ctx context.Context, key model.SlotKey, sessionID string) (model.HoldResult, error)
	releaseHoldFunc     func(ctx context.Context, key model.SlotKey, sessionID string) error
	releaseAllHoldsFunc func(ctx context.Context, sessionID string) error
}

func (m *mockAvailabilityService) GetSlotStatus(ctx context.Context, resourceID, date, sessionID string) (*model.SlotStatus, error) {
	if m.getSlotStatusFunc != nil {
		return m.getSlotStatusFunc(ctx, resourceID, date, sessionID)
	}
	return &model.SlotStatus{ResourceID: resourceID, Date: date}, nil
}

func (m *mockAvailabilityService) AcquireHold(ctx context.Context, key model.SlotKey, sessionID string) (model.HoldResult, error) {
	if m.acquireHoldFunc != nil {
		return m.acquireHoldFunc(ctx, key, sessionID)
	}
	return model.HoldResult{Outcome: model.HoldGranted}, nil
}

func (m *mockAvailabilityService) ReleaseHold(ctx context.Context, key model.SlotKey, sessionID string) error {
	if m.releaseHoldFunc != nil {
		return m.releaseHoldFunc(ctx, key, sessionID)
	}
	return nil
}

func (m *mockAvailabilityService) ReleaseAllHolds(ctx context.Context, sessionID string) error {
	if m.releaseAllHoldsFunc != nil {
		return m.releaseAllHoldsFunc(ctx, sessionID)
	}
	return nil
}

func (m *mockAvailabilityService) SweepExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

type mockBookingService struct {
	finalizeFunc func(ctx context.Context, req *model.FinalizeRequest, sessionID string) (model.FinalizeResult, error)
	getByIDFunc  func(ctx context.Context, id string) (*model.Booking, error)
	getAllFunc   func(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	cancelFunc   func(ctx context.Context, id string) error
}

func (m *mockBookingService) Finalize(ctx context.Context, req *model.FinalizeRequest, sessionID string) (model.FinalizeResult, error) {
	if m.finalizeFunc != nil {
		return m.finalizeFunc(ctx, req, sessionID)
	}
	return model.FinalizeResult{Outcome: model.FinalizeConfirmed, Booking: &model.Booking{}}, nil
}

func (m *mockBookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx, limit, offset)
	}
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) Cancel(ctx context.Context, id string) error {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, id)
	}
	return nil
}

type mockScheduleService struct {
	getFunc      func(ctx context.Context) (*model.Schedule, error)
	updateFunc   func(ctx context.Context, schedule *model.Schedule) (*model.Schedule, error)
	generateFunc func(ctx context.Context, req *model.GenerateSlotsRequest) ([]string, error)
}

func (m *mockScheduleService) Get(ctx context.Context) (*model.Schedule, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx)
	}
	return &model.Schedule{}, nil
}

func (m *mockScheduleService) Update(ctx context.Context, schedule *model.Schedule) (*model.Schedule, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, schedule)
	}
	return schedule, nil
}

func (m *mockScheduleService) GenerateTimeSlots(ctx context.Context, req *model.GenerateSlotsRequest) ([]string, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return []string{}, nil
}

type mockPinger map[string]error

func (m mockPinger) Ping(context.Context) map[string]error {
	return m
}

package model

import "time"

type ChangeKind string

const (
	ChangeKindHold     ChangeKind = "hold"
	ChangeKindBooking  ChangeKind = "booking"
	ChangeKindSchedule ChangeKind = "schedule"
)

type ChangeAction string

const (
	ActionHoldAcquired     ChangeAction = "hold.acquired"
	ActionHoldRefreshed    ChangeAction = "hold.refreshed"
	ActionHoldReleased     ChangeAction = "hold.released"
	ActionHoldsSwept       ChangeAction = "hold.swept"
	ActionBookingCreated   ChangeAction = "booking.created"
	ActionBookingCancelled ChangeAction = "booking.cancelled"
	ActionScheduleUpdated  ChangeAction = "schedule.updated"
)

// SlotChange is a "something changed" signal. Consumers re-query status;
// they never apply it as state.
type SlotChange struct {
	Kind       ChangeKind   `json:"kind"`
	Action     ChangeAction `json:"action"`
	ResourceID string       `json:"resource_id,omitempty"`
	Date       string       `json:"date,omitempty"`
	TimeLabel  string       `json:"time_label,omitempty"`
	SessionID  string       `json:"session_id,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// Affects reports whether the change may alter the status of resourceID on date.
func (c SlotChange) Affects(resourceID, date string) bool {
	if c.ResourceID == "" {
		return true
	}
	if c.ResourceID != resourceID {
		return false
	}
	return c.Date == "" || c.Date == date
}

package model

import "time"

type SlotState string

const (
	SlotFree        SlotState = "free"
	SlotBooked      SlotState = "booked"
	SlotHeldByOther SlotState = "held_by_other"
	SlotHeldByMe    SlotState = "held_by_me"
	SlotUnavailable SlotState = "unavailable"
)

type MyHold struct {
	TimeLabel string    `json:"time_label"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SlotStatus partitions the configured time labels of a resource/date.
// Unavailable is only populated by ClosedSlotStatus.
type SlotStatus struct {
	ResourceID  string    `json:"resource_id"`
	Date        string    `json:"date"`
	Booked      []string  `json:"booked"`
	HeldByOther []string  `json:"held_by_other"`
	MyHold      *MyHold   `json:"my_hold"`
	Free        []string  `json:"free"`
	Unavailable []string  `json:"unavailable,omitempty"`
	CheckedAt   time.Time `json:"checked_at"`
}

// ClosedSlotStatus reports every label as unavailable. Used whenever the
// real state could not be read.
func ClosedSlotStatus(resourceID, date string, labels []string, at time.Time) *SlotStatus {
	unavailable := make([]string, len(labels))
	copy(unavailable, labels)
	return &SlotStatus{
		ResourceID:  resourceID,
		Date:        date,
		Booked:      []string{},
		HeldByOther: []string{},
		Free:        []string{},
		Unavailable: unavailable,
		CheckedAt:   at,
	}
}

func (s *SlotStatus) State(label string) SlotState {
	if contains(s.Unavailable, label) {
		return SlotUnavailable
	}
	if contains(s.Booked, label) {
		return SlotBooked
	}
	if s.MyHold != nil && s.MyHold.TimeLabel == label {
		return SlotHeldByMe
	}
	if contains(s.HeldByOther, label) {
		return SlotHeldByOther
	}
	return SlotFree
}

// Labels returns every label the status covers, in partition order.
func (s *SlotStatus) Labels() []string {
	labels := make([]string, 0, len(s.Booked)+len(s.HeldByOther)+len(s.Free)+len(s.Unavailable)+1)
	labels = append(labels, s.Booked...)
	labels = append(labels, s.HeldByOther...)
	if s.MyHold != nil {
		labels = append(labels, s.MyHold.TimeLabel)
	}
	labels = append(labels, s.Free...)
	labels = append(labels, s.Unavailable...)
	return labels
}

func (s *SlotStatus) IsClosed() bool {
	return len(s.Unavailable) > 0
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

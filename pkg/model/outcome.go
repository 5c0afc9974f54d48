package model

type HoldOutcome string

const (
	HoldGranted         HoldOutcome = "granted"
	HoldSlotUnavailable HoldOutcome = "slot_unavailable"
)

// HoldResult is the answer to a hold request. A slot owned by someone else is
// an outcome, not an error.
type HoldResult struct {
	Outcome HoldOutcome `json:"outcome"`
	Hold    *Hold       `json:"hold,omitempty"`
}

func (r HoldResult) Granted() bool {
	return r.Outcome == HoldGranted
}

type FinalizeOutcome string

const (
	FinalizeConfirmed FinalizeOutcome = "confirmed"
	FinalizeSlotTaken FinalizeOutcome = "slot_taken"
)

type FinalizeResult struct {
	Outcome FinalizeOutcome `json:"outcome"`
	Booking *Booking        `json:"booking,omitempty"`
}

func (r FinalizeResult) Confirmed() bool {
	return r.Outcome == FinalizeConfirmed
}

// FinalizeRequest carries everything needed to turn a slot into a booking.
type FinalizeRequest struct {
	SlotKey
	Registrant Registrant `json:"registrant"`
}

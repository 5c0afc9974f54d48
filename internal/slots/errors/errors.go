package errors

import "errors"

var (
	ErrNotFound = errors.New("not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrHoldExists is returned by an insert that lost to an existing hold row.
	ErrHoldExists = errors.New("a hold already exists for this slot")

	// ErrBookingExists is returned when the store's uniqueness constraint on
	// the slot key rejects a booking.
	ErrBookingExists = errors.New("a booking already exists for this slot")

	ErrScheduleNotFound = errors.New("schedule not found")
)

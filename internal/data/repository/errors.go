package repository

import "errors"

var (
	// ErrSlotTaken is returned when the conflict check inside the
	// reservation transaction finds an overlapping active booking.
	ErrSlotTaken = errors.New("slot already taken")

	// ErrDuplicateEvent is returned when a payment event with the same
	// gateway event id was already recorded in the ledger.
	ErrDuplicateEvent = errors.New("payment event already applied")
)

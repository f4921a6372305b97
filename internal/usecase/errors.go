package usecase

import "errors"

var (
	// ErrValidation is returned for malformed, missing, or out-of-range input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced store, service, employee or
	// booking does not exist (or is not visible to the caller).
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor does not own the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrSlotUnavailable is returned when the requested time range overlaps an
	// active booking. Callers should re-fetch availability and retry.
	ErrSlotUnavailable = errors.New("slot not available")

	// ErrInvalidTransition is returned for a booking status change the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrCorrelation is returned when a payment event cannot be matched to a
	// booking (missing or malformed receipt).
	ErrCorrelation = errors.New("cannot correlate payment event to booking")

	// ErrSignature is returned when a payment or webhook signature check fails.
	ErrSignature = errors.New("invalid payment signature")
)

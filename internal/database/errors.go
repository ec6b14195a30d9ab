package database

import "errors"

// Sentinel errors shared across the store and the services on top of it.
// Callers classify failures with errors.Is; the API boundary maps them to
// status codes.
var (
	// ErrNotFound covers unknown flights, fares, seats, bookings,
	// passengers and products. Not retryable.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks malformed or missing request fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSeatConflict is returned when a seat on a flight is already held
	// by a different passenger. Exactly one of N concurrent claimants wins.
	ErrSeatConflict = errors.New("seat already assigned on this flight")

	// ErrInsufficientCapacity is returned both by the advisory pre-check
	// and by the commit-time recount. Retryable from the caller's view.
	ErrInsufficientCapacity = errors.New("insufficient seat capacity")

	// ErrFlightNotBookable covers wrong flight status and past departure.
	ErrFlightNotBookable = errors.New("flight is not open for booking")

	// ErrAncillaryUnavailable aborts the whole booking transaction when a
	// requested product is missing or inactive at commit time.
	ErrAncillaryUnavailable = errors.New("ancillary product unavailable")

	// ErrCancellationWindow rejects cancellations too close to departure.
	ErrCancellationWindow = errors.New("too close to departure to cancel")

	// ErrInvalidTransition rejects booking status transitions that are not
	// part of the state machine (cancelled is terminal).
	ErrInvalidTransition = errors.New("invalid booking status transition")

	// ErrConcurrentModification signals a lost optimistic-version race on a
	// booking status update.
	ErrConcurrentModification = errors.New("booking was modified concurrently")

	ErrUnauthenticated = errors.New("caller is not authenticated")
	ErrUnauthorized    = errors.New("caller may not act on this booking")
)

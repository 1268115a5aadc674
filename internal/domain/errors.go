// Package domain holds the core data model of the booking engine and the
// sentinel errors that make up its error taxonomy. Business rejections are
// returned as typed errors so that callers can branch with errors.Is instead
// of matching message strings. Handlers translate them into HTTP statuses;
// they are expected outcomes and are never logged as errors.
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuantity rejects booking requests with quantity < 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrEventNotFound is returned when the referenced event does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrTicketTypeNotFound is returned when the referenced ticket type does
	// not exist.
	ErrTicketTypeNotFound = errors.New("ticket type not found")

	// ErrInvalidTicketType is returned when a ticket type exists but belongs
	// to a different event than the one being booked.
	ErrInvalidTicketType = errors.New("ticket type does not belong to event")

	// ErrTicketNotFound is returned when the referenced ticket does not exist.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrInsufficientCapacity signals that the requested quantity exceeds the
	// pool's remaining seats. Use NewCapacityError to attach the counts.
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	// ErrEventAlreadyOccurred rejects bookings and cancellations against an
	// event whose start time has passed.
	ErrEventAlreadyOccurred = errors.New("event has already occurred")

	// ErrAlreadyCancelled is returned when cancelling a ticket that is
	// already in the CANCELLED state. The first cancellation returned the
	// seats; a second one must not.
	ErrAlreadyCancelled = errors.New("ticket already cancelled")

	// ErrNotAuthorized is returned when the caller neither owns the ticket
	// nor holds an elevated role for its event.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrEmailTaken is returned on signup when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUserNotFound is returned when no user matches the given credentials
	// reference.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateCode is returned by the store when a generated ticket code
	// collides with an existing one. The booking service retries with a
	// fresh code; this error never reaches external callers.
	ErrDuplicateCode = errors.New("duplicate ticket code")

	// ErrTxConflict marks transient store contention (deadlock, lock wait
	// timeout). The engine retries these internally a bounded number of
	// times before surfacing ErrUnavailable.
	ErrTxConflict = errors.New("transaction conflict")

	// ErrUnavailable is returned once internal retries on store contention
	// are exhausted or the store fails outright. Fatal to the request, not
	// to the process.
	ErrUnavailable = errors.New("storage unavailable")
)

// CapacityError carries the informational seat counts for an
// ErrInsufficientCapacity rejection so that clients see a specific,
// actionable reason. Available is a display value re-read after the failed
// attempt; it is advisory, not the value the reservation was checked against.
type CapacityError struct {
	Available int
	Requested int
}

// NewCapacityError builds a CapacityError from the current available count
// and the quantity that was requested.
func NewCapacityError(available, requested int) *CapacityError {
	return &CapacityError{Available: available, Requested: requested}
}

func (e *CapacityError) Error() string {
	if e.Available == 1 {
		return fmt.Sprintf("only 1 seat remains, requested %d", e.Requested)
	}
	return fmt.Sprintf("only %d seats remain, requested %d", e.Available, e.Requested)
}

// Unwrap lets errors.Is(err, ErrInsufficientCapacity) match a CapacityError.
func (e *CapacityError) Unwrap() error { return ErrInsufficientCapacity }

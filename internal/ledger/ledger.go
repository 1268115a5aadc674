// Package ledger is the single authority for per-pool seat accounting. A
// pool is either an event's overall capacity or one ticket-type sub-pool.
//
// The booked count is never stored as its own column: it is derived from the
// summed quantity of ACTIVE tickets, computed inside the same transaction
// that decides the booking. TryReserve takes the pool's row lock and checks
// the derived count against capacity; the reservation becomes durable when
// the caller inserts the ACTIVE ticket and the transaction commits, so a
// failed insert rolls the reservation back with it and a cancelled ticket's
// seats can never be returned twice.
package ledger

import (
	"context"
	"fmt"

	"github.com/onvent/event-booking/internal/domain"
)

// Store is the slice of the storage layer the ledger needs. LockPool must
// acquire a write lock on the pool's row that lasts until the surrounding
// transaction ends; it is the serialization point for all writers of one
// pool. PoolCapacity is the lock-free variant used for advisory reads.
// Both return the pool's total capacity or ErrEventNotFound /
// ErrTicketTypeNotFound.
type Store interface {
	LockPool(ctx context.Context, pool domain.PoolRef) (capacity int, err error)
	PoolCapacity(ctx context.Context, pool domain.PoolRef) (capacity int, err error)
	BookedQuantity(ctx context.Context, pool domain.PoolRef) (int, error)
}

// Availability reports a pool's seat counts at one instant.
type Availability struct {
	Capacity  int `json:"capacity"`
	Booked    int `json:"booked"`
	Available int `json:"available"`
}

// Ledger answers availability queries and guards reservations.
type Ledger struct {
	store Store
}

// New returns a Ledger over the given store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// CheckAvailability reads the pool's counts without locking. The value is
// advisory, for display: concurrent writers may change it immediately.
// Authoritative checks happen only inside TryReserve.
func (l *Ledger) CheckAvailability(ctx context.Context, pool domain.PoolRef) (Availability, error) {
	capacity, err := l.store.PoolCapacity(ctx, pool)
	if err != nil {
		return Availability{}, err
	}
	booked, err := l.store.BookedQuantity(ctx, pool)
	if err != nil {
		return Availability{}, err
	}
	return Availability{Capacity: capacity, Booked: booked, Available: capacity - booked}, nil
}

// TryReserve verifies available >= quantity under the pool's row lock. It
// must run inside the transaction that creates the ticket; the lock is held
// until that transaction ends, so no two concurrent reservations against the
// same pool can both observe the seat they are racing for. On success it
// returns the availability as it will stand once the caller's ticket row is
// in place. On ErrInsufficientCapacity the transaction has no side effects.
func (l *Ledger) TryReserve(ctx context.Context, pool domain.PoolRef, quantity int) (Availability, error) {
	if quantity < 1 {
		return Availability{}, domain.ErrInvalidQuantity
	}
	capacity, err := l.store.LockPool(ctx, pool)
	if err != nil {
		return Availability{}, err
	}
	booked, err := l.store.BookedQuantity(ctx, pool)
	if err != nil {
		return Availability{}, err
	}
	if capacity-booked < quantity {
		return Availability{}, domain.ErrInsufficientCapacity
	}
	return Availability{
		Capacity:  capacity,
		Booked:    booked + quantity,
		Available: capacity - booked - quantity,
	}, nil
}

// Release re-acquires the pool's row lock ahead of a cancellation's status
// flip so that releases serialize with reservations, and asserts that the
// booked count actually covers the quantity being returned. A shortfall is a
// logic error: booked is bounded by prior successful reservations, so it can
// only mean the status transition guard was bypassed.
func (l *Ledger) Release(ctx context.Context, pool domain.PoolRef, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	if _, err := l.store.LockPool(ctx, pool); err != nil {
		return err
	}
	booked, err := l.store.BookedQuantity(ctx, pool)
	if err != nil {
		return err
	}
	if booked < quantity {
		return fmt.Errorf("release of %d seats exceeds booked count %d for pool %+v", quantity, booked, pool)
	}
	return nil
}

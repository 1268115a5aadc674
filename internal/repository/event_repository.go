package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/onvent/event-booking/internal/domain"
)

// GetEvent returns the event metadata record. The engine reads events but
// never writes them; capacity changes only through the reservation path.
func (r *Repository) GetEvent(ctx context.Context, id uint64) (domain.Event, error) {
	const q = `SELECT id, title, location, starts_at, capacity, price_cents, organizer_id, created_at
	           FROM events WHERE id = ?`
	var ev domain.Event
	err := r.q(ctx).QueryRowContext(ctx, q, id).Scan(
		&ev.ID, &ev.Title, &ev.Location, &ev.StartsAt,
		&ev.Capacity, &ev.PriceCents, &ev.OrganizerID, &ev.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.Event{}, classify(err)
	}
	return ev, nil
}

// GetTicketType returns a ticket-type sub-pool record.
func (r *Repository) GetTicketType(ctx context.Context, id uint64) (domain.TicketType, error) {
	const q = `SELECT id, event_id, name, capacity, price_cents FROM ticket_types WHERE id = ?`
	var tt domain.TicketType
	err := r.q(ctx).QueryRowContext(ctx, q, id).Scan(
		&tt.ID, &tt.EventID, &tt.Name, &tt.Capacity, &tt.PriceCents,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TicketType{}, domain.ErrTicketTypeNotFound
	}
	if err != nil {
		return domain.TicketType{}, classify(err)
	}
	return tt, nil
}

// LockPool takes the pool row's write lock and returns its capacity. The
// lock lasts until the transaction in ctx ends; every writer of a pool goes
// through here first, which is what serializes racing reservations.
func (r *Repository) LockPool(ctx context.Context, pool domain.PoolRef) (int, error) {
	return r.poolCapacity(ctx, pool, true)
}

// PoolCapacity reads the pool's capacity without locking.
func (r *Repository) PoolCapacity(ctx context.Context, pool domain.PoolRef) (int, error) {
	return r.poolCapacity(ctx, pool, false)
}

func (r *Repository) poolCapacity(ctx context.Context, pool domain.PoolRef, forUpdate bool) (int, error) {
	var (
		q    string
		args []any
	)
	if pool.IsTicketType() {
		q = `SELECT capacity FROM ticket_types WHERE id = ? AND event_id = ?`
		args = []any{pool.TicketTypeID, pool.EventID}
	} else {
		q = `SELECT capacity FROM events WHERE id = ?`
		args = []any{pool.EventID}
	}
	if forUpdate {
		q += ` FOR UPDATE`
	}
	var capacity int
	err := r.q(ctx).QueryRowContext(ctx, q, args...).Scan(&capacity)
	if errors.Is(err, sql.ErrNoRows) {
		if pool.IsTicketType() {
			return 0, domain.ErrTicketTypeNotFound
		}
		return 0, domain.ErrEventNotFound
	}
	if err != nil {
		return 0, classify(err)
	}
	return capacity, nil
}

// BookedQuantity derives the pool's booked count from ACTIVE tickets. Event
// pools count only tickets booked without a ticket type; each sub-pool
// manages its own capacity independently.
func (r *Repository) BookedQuantity(ctx context.Context, pool domain.PoolRef) (int, error) {
	var (
		q    string
		args []any
	)
	if pool.IsTicketType() {
		q = `SELECT COALESCE(SUM(quantity), 0) FROM tickets
		     WHERE ticket_type_id = ? AND status = 'ACTIVE'`
		args = []any{pool.TicketTypeID}
	} else {
		q = `SELECT COALESCE(SUM(quantity), 0) FROM tickets
		     WHERE event_id = ? AND ticket_type_id IS NULL AND status = 'ACTIVE'`
		args = []any{pool.EventID}
	}
	var booked int
	if err := r.q(ctx).QueryRowContext(ctx, q, args...).Scan(&booked); err != nil {
		return 0, classify(err)
	}
	return booked, nil
}

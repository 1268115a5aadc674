package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/onvent/event-booking/internal/domain"
)

// CreateTicket inserts a ticket and populates its generated ID. A collision
// on the unique code index comes back as domain.ErrDuplicateCode so the
// service can retry with a fresh code instead of failing the booking.
func (r *Repository) CreateTicket(ctx context.Context, t *domain.Ticket) error {
	const q = `INSERT INTO tickets
	           (code, user_id, event_id, ticket_type_id, quantity, unit_price_cents, status, purchased_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	var ticketType any
	if t.TicketTypeID != 0 {
		ticketType = t.TicketTypeID
	}
	res, err := r.q(ctx).ExecContext(ctx, q,
		t.Code, t.UserID, t.EventID, ticketType,
		t.Quantity, t.UnitPriceCents, string(t.Status), t.PurchasedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return domain.ErrDuplicateCode
		}
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return classify(err)
	}
	t.ID = uint64(id)
	return nil
}

// GetTicket returns a ticket by ID.
func (r *Repository) GetTicket(ctx context.Context, id uint64) (domain.Ticket, error) {
	const q = `SELECT id, code, user_id, event_id, ticket_type_id, quantity, unit_price_cents,
	                  status, purchased_at, cancelled_at
	           FROM tickets WHERE id = ?`
	return r.scanTicket(r.q(ctx).QueryRowContext(ctx, q, id))
}

// CancelTicket performs the ACTIVE -> CANCELLED transition. The status guard
// in the WHERE clause makes the transition atomic: a ticket that is already
// cancelled matches no row and comes back as domain.ErrAlreadyCancelled, so
// two racing cancellations cannot both return the seats.
func (r *Repository) CancelTicket(ctx context.Context, id uint64, at time.Time) error {
	const q = `UPDATE tickets SET status = 'CANCELLED', cancelled_at = ?
	           WHERE id = ? AND status = 'ACTIVE'`
	res, err := r.q(ctx).ExecContext(ctx, q, at, id)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return domain.ErrAlreadyCancelled
	}
	return nil
}

// ListTicketsByUser returns a user's tickets, newest first.
func (r *Repository) ListTicketsByUser(ctx context.Context, userID uint64) ([]domain.Ticket, error) {
	const q = `SELECT id, code, user_id, event_id, ticket_type_id, quantity, unit_price_cents,
	                  status, purchased_at, cancelled_at
	           FROM tickets WHERE user_id = ? ORDER BY purchased_at DESC, id DESC`
	return r.listTickets(ctx, q, userID)
}

// ListTicketsByEvent returns all tickets booked against an event, newest
// first. Used by the organizer surface.
func (r *Repository) ListTicketsByEvent(ctx context.Context, eventID uint64) ([]domain.Ticket, error) {
	const q = `SELECT id, code, user_id, event_id, ticket_type_id, quantity, unit_price_cents,
	                  status, purchased_at, cancelled_at
	           FROM tickets WHERE event_id = ? ORDER BY purchased_at DESC, id DESC`
	return r.listTickets(ctx, q, eventID)
}

func (r *Repository) listTickets(ctx context.Context, query string, arg any) ([]domain.Ticket, error) {
	rows, err := r.q(ctx).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		t, err := scanTicketRow(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return tickets, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanTicket(row *sql.Row) (domain.Ticket, error) {
	t, err := scanTicketRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return t, err
}

func scanTicketRow(s rowScanner) (domain.Ticket, error) {
	var (
		t          domain.Ticket
		ticketType sql.NullInt64
		status     string
		cancelled  sql.NullTime
	)
	err := s.Scan(
		&t.ID, &t.Code, &t.UserID, &t.EventID, &ticketType,
		&t.Quantity, &t.UnitPriceCents, &status, &t.PurchasedAt, &cancelled,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Ticket{}, err
		}
		return domain.Ticket{}, classify(err)
	}
	parsed, err := domain.ParseTicketStatus(status)
	if err != nil {
		return domain.Ticket{}, err
	}
	t.Status = parsed
	if ticketType.Valid {
		t.TicketTypeID = uint64(ticketType.Int64)
	}
	if cancelled.Valid {
		at := cancelled.Time
		t.CancelledAt = &at
	}
	return t, nil
}

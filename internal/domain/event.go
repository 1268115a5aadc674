package domain

import "time"

// Event is a bookable occasion. Capacity is the total number of seats for
// the event-level pool. The booked count is never stored on the event; it is
// derived from ACTIVE tickets so the row itself stays immutable once
// bookings exist against it.
//
// Fields map one-to-one onto the events table.
type Event struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	Capacity    int       `json:"capacity"`
	PriceCents  uint32    `json:"price_cents"`
	OrganizerID uint64    `json:"organizer_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TicketType is an optional sub-pool within an event with its own capacity
// and price. When a booking names a ticket type, that sub-pool's capacity is
// authoritative; the event-level pool governs only tickets booked without
// one.
type TicketType struct {
	ID         uint64 `json:"id"`
	EventID    uint64 `json:"event_id"`
	Name       string `json:"name"`
	Capacity   int    `json:"capacity"`
	PriceCents uint32 `json:"price_cents"`
}

// PoolRef identifies the capacity-tracked unit a reservation runs against:
// either the whole event (TicketTypeID zero) or one ticket-type sub-pool.
type PoolRef struct {
	EventID      uint64
	TicketTypeID uint64
}

// EventPool returns the event-level pool reference.
func EventPool(eventID uint64) PoolRef {
	return PoolRef{EventID: eventID}
}

// TicketTypePool returns the sub-pool reference for a ticket type.
func TicketTypePool(eventID, ticketTypeID uint64) PoolRef {
	return PoolRef{EventID: eventID, TicketTypeID: ticketTypeID}
}

// IsTicketType reports whether the reference names a ticket-type sub-pool.
func (p PoolRef) IsTicketType() bool { return p.TicketTypeID != 0 }

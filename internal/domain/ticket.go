package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TicketStatus is the closed set of ticket lifecycle states. It is a named
// string type so the database value round-trips directly, but the only
// values the engine ever writes are the two constants below; ParseTicketStatus
// rejects everything else at the boundary.
type TicketStatus string

const (
	// TicketStatusActive is the initial and only creatable state. An ACTIVE
	// ticket's quantity counts against its pool.
	TicketStatusActive TicketStatus = "ACTIVE"
	// TicketStatusCancelled is terminal. A cancelled ticket's seats were
	// returned exactly once, at the moment of the transition.
	TicketStatusCancelled TicketStatus = "CANCELLED"
)

// ParseTicketStatus validates a raw status string read from storage.
func ParseTicketStatus(s string) (TicketStatus, error) {
	switch TicketStatus(s) {
	case TicketStatusActive:
		return TicketStatusActive, nil
	case TicketStatusCancelled:
		return TicketStatusCancelled, nil
	}
	return "", fmt.Errorf("unknown ticket status %q", s)
}

// Ticket is one reservation of one or more seats. TicketTypeID is zero when
// the ticket was booked against the event-level pool. References are
// one-directional; the owning user and event are looked up by ID, never
// embedded.
type Ticket struct {
	ID             uint64       `json:"id"`
	Code           string       `json:"code"`
	UserID         uint64       `json:"user_id"`
	EventID        uint64       `json:"event_id"`
	TicketTypeID   uint64       `json:"ticket_type_id,omitempty"`
	Quantity       int          `json:"quantity"`
	UnitPriceCents uint32       `json:"unit_price_cents"`
	Status         TicketStatus `json:"status"`
	PurchasedAt    time.Time    `json:"purchased_at"`
	CancelledAt    *time.Time   `json:"cancelled_at,omitempty"`
}

// Pool returns the pool this ticket's quantity counts against.
func (t Ticket) Pool() PoolRef {
	if t.TicketTypeID != 0 {
		return TicketTypePool(t.EventID, t.TicketTypeID)
	}
	return EventPool(t.EventID)
}

// TotalCents is the ticket's total price.
func (t Ticket) TotalCents() uint32 {
	return t.UnitPriceCents * uint32(t.Quantity)
}

// NewTicketCode returns a fresh human-presentable ticket code of the form
// TKT-XXXXXXXX. The eight characters come from a random UUID, so a collision
// on the unique index is possible but rare; callers retry with a new code
// when the store reports ErrDuplicateCode.
func NewTicketCode() string {
	return "TKT-" + strings.ToUpper(uuid.NewString()[:8])
}

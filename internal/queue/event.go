// Package queue defines the message payloads exchanged over RabbitMQ and
// the publisher/consumer pair for confirmation delivery.
package queue

// BookingConfirmedEvent is published after a booking commits. It carries
// everything a downstream consumer needs to render and deliver the
// confirmation without querying the primary database.
type BookingConfirmedEvent struct {
	TicketID      uint64 `json:"ticket_id"`
	TicketCode    string `json:"ticket_code"`
	UserID        uint64 `json:"user_id"`
	UserName      string `json:"user_name"`
	UserEmail     string `json:"user_email"`
	EventID       uint64 `json:"event_id"`
	EventTitle    string `json:"event_title"`
	EventLocation string `json:"event_location"`
	StartsAt      string `json:"starts_at"`
	Quantity      int    `json:"quantity"`
	TotalCents    uint32 `json:"total_cents"`
	PurchasedAt   string `json:"purchased_at"`
}

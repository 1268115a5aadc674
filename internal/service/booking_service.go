// Package service orchestrates bookings and cancellations end-to-end: rule
// validation, the atomic reserve-and-create unit against the capacity
// ledger, and the fire-and-forget confirmation hand-off.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/onvent/event-booking/internal/clock"
	"github.com/onvent/event-booking/internal/domain"
	"github.com/onvent/event-booking/internal/ledger"
	"github.com/onvent/event-booking/internal/metrics"
	"github.com/onvent/event-booking/internal/queue"
)

// Store is the persistence surface the booking service needs. The mysql
// Repository implements it; tests substitute an in-memory fake. WithTx must
// make everything executed inside fn atomic, and ledger.Store's LockPool
// must serialize writers of one pool for the transaction's duration.
type Store interface {
	ledger.Store

	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetEvent(ctx context.Context, id uint64) (domain.Event, error)
	GetTicketType(ctx context.Context, id uint64) (domain.TicketType, error)
	GetUser(ctx context.Context, id uint64) (domain.User, error)
	CreateTicket(ctx context.Context, t *domain.Ticket) error
	GetTicket(ctx context.Context, id uint64) (domain.Ticket, error)
	CancelTicket(ctx context.Context, id uint64, at time.Time) error
	ListTicketsByUser(ctx context.Context, userID uint64) ([]domain.Ticket, error)
	ListTicketsByEvent(ctx context.Context, eventID uint64) ([]domain.Ticket, error)
}

// Notifier receives completed bookings for out-of-band confirmation
// delivery. Failures are logged and swallowed; a booking is never rolled
// back because its confirmation could not be dispatched.
type Notifier interface {
	BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// Bounded retry budget for transient store contention, and for ticket-code
// collisions inside one transaction.
const (
	maxConflictRetries = 3
	maxCodeRetries     = 3
)

// BookingService exposes Book, Cancel and CheckAvailability to the
// transport layer.
type BookingService struct {
	store    Store
	ledger   *ledger.Ledger
	clock    clock.Clock
	notifier Notifier

	notifyTimeout time.Duration
}

// NewBookingService wires the service. notifier may be nil, which disables
// confirmation dispatch (useful in tests and one-off tools).
func NewBookingService(store Store, lgr *ledger.Ledger, clk clock.Clock, notifier Notifier) *BookingService {
	return &BookingService{
		store:         store,
		ledger:        lgr,
		clock:         clk,
		notifier:      notifier,
		notifyTimeout: 10 * time.Second,
	}
}

// BookInput names the booking request. TicketTypeID zero means the
// event-level pool; Quantity zero defaults to one.
type BookInput struct {
	UserID       uint64
	EventID      uint64
	TicketTypeID uint64
	Quantity     int
}

// BookResult is the committed ticket plus the pool's availability right
// after the booking.
type BookResult struct {
	Ticket       domain.Ticket
	Availability ledger.Availability
}

// Book runs one booking request to completion. Rule order: quantity, event
// existence, event not past, ticket-type membership, then the atomic
// reserve-and-create. On ErrInsufficientCapacity the returned error carries
// a freshly read available count for display.
func (s *BookingService) Book(ctx context.Context, in BookInput) (BookResult, error) {
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 1 {
		return BookResult{}, domain.ErrInvalidQuantity
	}

	var (
		result BookResult
		pool   domain.PoolRef
	)
	err := s.withConflictRetry(ctx, func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(ctx context.Context) error {
			ev, err := s.store.GetEvent(ctx, in.EventID)
			if err != nil {
				return err
			}
			if ev.StartsAt.Before(s.clock.Now()) {
				return domain.ErrEventAlreadyOccurred
			}

			pool = domain.EventPool(ev.ID)
			unitPrice := ev.PriceCents
			if in.TicketTypeID != 0 {
				tt, err := s.store.GetTicketType(ctx, in.TicketTypeID)
				if err != nil {
					return err
				}
				if tt.EventID != ev.ID {
					return domain.ErrInvalidTicketType
				}
				pool = domain.TicketTypePool(ev.ID, tt.ID)
				unitPrice = tt.PriceCents
			}

			avail, err := s.ledger.TryReserve(ctx, pool, in.Quantity)
			if err != nil {
				return err
			}

			ticket := domain.Ticket{
				UserID:         in.UserID,
				EventID:        ev.ID,
				TicketTypeID:   in.TicketTypeID,
				Quantity:       in.Quantity,
				UnitPriceCents: unitPrice,
				Status:         domain.TicketStatusActive,
				PurchasedAt:    s.clock.Now(),
			}
			if err := s.createWithFreshCode(ctx, &ticket); err != nil {
				return err
			}

			result = BookResult{Ticket: ticket, Availability: avail}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCapacity) {
			return BookResult{}, s.capacityError(ctx, pool, in.Quantity)
		}
		return BookResult{}, err
	}

	s.dispatchConfirmation(result.Ticket)
	return result, nil
}

// createWithFreshCode inserts the ticket, regenerating the code on a unique
// index collision. The odds of one collision are already negligible; hitting
// the retry ceiling means the code column is corrupt, not unlucky.
func (s *BookingService) createWithFreshCode(ctx context.Context, t *domain.Ticket) error {
	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		t.Code = domain.NewTicketCode()
		err := s.store.CreateTicket(ctx, t)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrDuplicateCode) {
			return err
		}
	}
	return domain.ErrDuplicateCode
}

// capacityError re-reads the pool for the client-facing message. The second
// read is purely informational and may differ from the value the failed
// reservation saw.
func (s *BookingService) capacityError(ctx context.Context, pool domain.PoolRef, requested int) error {
	avail, err := s.ledger.CheckAvailability(ctx, pool)
	if err != nil {
		// The rejection stands even when the display read fails.
		return domain.NewCapacityError(0, requested)
	}
	return domain.NewCapacityError(avail.Available, requested)
}

// CancelInput names the cancellation request. Role is the caller's role as
// supplied by the session layer; ORGANIZER unlocks the elevated path for
// events the caller organizes.
type CancelInput struct {
	UserID   uint64
	Role     domain.Role
	TicketID uint64
}

// CancelResult is the cancelled ticket plus the pool's availability after
// the seats were returned.
type CancelResult struct {
	Ticket       domain.Ticket
	Availability ledger.Availability
}

// Cancel transitions a ticket to CANCELLED and returns its seats, as one
// atomic unit. Rule order: ticket existence, ownership or elevated role,
// already-cancelled, event not past.
func (s *BookingService) Cancel(ctx context.Context, in CancelInput) (CancelResult, error) {
	var result CancelResult
	err := s.withConflictRetry(ctx, func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(ctx context.Context) error {
			ticket, err := s.store.GetTicket(ctx, in.TicketID)
			if err != nil {
				return err
			}
			ev, err := s.store.GetEvent(ctx, ticket.EventID)
			if err != nil {
				return err
			}
			if !s.mayCancel(in, ticket, ev) {
				return domain.ErrNotAuthorized
			}
			if ticket.Status == domain.TicketStatusCancelled {
				return domain.ErrAlreadyCancelled
			}
			if ev.StartsAt.Before(s.clock.Now()) {
				return domain.ErrEventAlreadyOccurred
			}

			// Lock the pool before flipping the status so releases and
			// reservations of one pool commit in a single serial order.
			pool := ticket.Pool()
			if err := s.ledger.Release(ctx, pool, ticket.Quantity); err != nil {
				return err
			}
			now := s.clock.Now()
			if err := s.store.CancelTicket(ctx, ticket.ID, now); err != nil {
				return err
			}

			ticket.Status = domain.TicketStatusCancelled
			ticket.CancelledAt = &now
			avail, err := s.ledger.CheckAvailability(ctx, pool)
			if err != nil {
				return err
			}
			result = CancelResult{Ticket: ticket, Availability: avail}
			return nil
		})
	})
	if err != nil {
		return CancelResult{}, err
	}
	return result, nil
}

func (s *BookingService) mayCancel(in CancelInput, ticket domain.Ticket, ev domain.Event) bool {
	if ticket.UserID == in.UserID {
		return true
	}
	return in.Role == domain.RoleOrganizer && ev.OrganizerID == in.UserID
}

// CheckAvailability resolves the pool and reads its counts without locking.
// The value is advisory for display; only TryReserve's view is
// authoritative.
func (s *BookingService) CheckAvailability(ctx context.Context, eventID, ticketTypeID uint64) (ledger.Availability, error) {
	pool := domain.EventPool(eventID)
	if ticketTypeID != 0 {
		tt, err := s.store.GetTicketType(ctx, ticketTypeID)
		if err != nil {
			return ledger.Availability{}, err
		}
		if tt.EventID != eventID {
			return ledger.Availability{}, domain.ErrInvalidTicketType
		}
		pool = domain.TicketTypePool(eventID, tt.ID)
	} else if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return ledger.Availability{}, err
	}

	var avail ledger.Availability
	err := s.withConflictRetry(ctx, func(ctx context.Context) error {
		var err error
		avail, err = s.ledger.CheckAvailability(ctx, pool)
		return err
	})
	return avail, err
}

// ListUserTickets returns the caller's bookings, newest first.
func (s *BookingService) ListUserTickets(ctx context.Context, userID uint64) ([]domain.Ticket, error) {
	return s.store.ListTicketsByUser(ctx, userID)
}

// ListEventTickets returns every ticket of an event for its organizer.
func (s *BookingService) ListEventTickets(ctx context.Context, callerID uint64, role domain.Role, eventID uint64) ([]domain.Ticket, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleOrganizer || ev.OrganizerID != callerID {
		return nil, domain.ErrNotAuthorized
	}
	return s.store.ListTicketsByEvent(ctx, eventID)
}

// GetTicketForUser returns a ticket after checking the caller may see it:
// the owner always, the event's organizer when Role is ORGANIZER.
func (s *BookingService) GetTicketForUser(ctx context.Context, callerID uint64, role domain.Role, ticketID uint64) (domain.Ticket, domain.Event, error) {
	ticket, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, domain.Event{}, err
	}
	ev, err := s.store.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return domain.Ticket{}, domain.Event{}, err
	}
	if ticket.UserID != callerID && !(role == domain.RoleOrganizer && ev.OrganizerID == callerID) {
		return domain.Ticket{}, domain.Event{}, domain.ErrNotAuthorized
	}
	return ticket, ev, nil
}

// withConflictRetry reruns fn on transient store contention up to the retry
// budget, then surfaces ErrUnavailable. Business errors pass through on the
// first occurrence.
func (s *BookingService) withConflictRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, domain.ErrTxConflict) {
			return err
		}
		if ctx.Err() != nil {
			break
		}
	}
	log.Printf("booking: retries exhausted on store contention: %v", err)
	return domain.ErrUnavailable
}

// dispatchConfirmation hands the completed booking to the notifier on its
// own goroutine. The request context may be gone by the time the publish
// runs, so the dispatch gets a fresh one with a deadline.
func (s *BookingService) dispatchConfirmation(ticket domain.Ticket) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		ev, err := s.store.GetEvent(ctx, ticket.EventID)
		if err != nil {
			log.Printf("booking: confirmation lookup for ticket %s failed: %v", ticket.Code, err)
			return
		}
		user, err := s.store.GetUser(ctx, ticket.UserID)
		if err != nil {
			log.Printf("booking: confirmation lookup for ticket %s failed: %v", ticket.Code, err)
			return
		}
		msg := queue.BookingConfirmedEvent{
			TicketID:      ticket.ID,
			TicketCode:    ticket.Code,
			UserID:        user.ID,
			UserName:      user.Name,
			UserEmail:     user.Email,
			EventID:       ev.ID,
			EventTitle:    ev.Title,
			EventLocation: ev.Location,
			StartsAt:      ev.StartsAt.UTC().Format(time.RFC3339),
			Quantity:      ticket.Quantity,
			TotalCents:    ticket.TotalCents(),
			PurchasedAt:   ticket.PurchasedAt.UTC().Format(time.RFC3339),
		}
		if err := s.notifier.BookingConfirmed(ctx, msg); err != nil {
			metrics.ConfirmationFailuresTotal.Inc()
			log.Printf("booking: confirmation dispatch for ticket %s failed: %v", ticket.Code, err)
		}
	}()
}

package service

import (
	"context"
	"sync"
	"time"

	"github.com/onvent/event-booking/internal/domain"
	"github.com/onvent/event-booking/internal/queue"
)

// fakeStore is an in-memory Store. WithTx serializes transactions behind one
// mutex, which models the per-pool row lock at its coarsest: whatever holds
// for this store under concurrency holds a fortiori for real row locks. On
// error the ticket table is restored from a snapshot, mirroring rollback.
type fakeStore struct {
	mu   sync.Mutex // guards state for reads outside transactions
	txMu sync.Mutex // serializes transactions

	events      map[uint64]domain.Event
	ticketTypes map[uint64]domain.TicketType
	users       map[uint64]domain.User
	tickets     map[uint64]domain.Ticket
	nextID      uint64

	conflictsLeft int   // WithTx returns ErrTxConflict while > 0
	dupCodesLeft  int   // CreateTicket returns ErrDuplicateCode while > 0
	failCreate    error // CreateTicket returns this when set
	createdCodes  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:      make(map[uint64]domain.Event),
		ticketTypes: make(map[uint64]domain.TicketType),
		users:       make(map[uint64]domain.User),
		tickets:     make(map[uint64]domain.Ticket),
	}
}

func (s *fakeStore) addEvent(ev domain.Event) { s.events[ev.ID] = ev }

func (s *fakeStore) addTicketType(tt domain.TicketType) { s.ticketTypes[tt.ID] = tt }

func (s *fakeStore) addUser(u domain.User) { s.users[u.ID] = u }

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		s.mu.Unlock()
		return domain.ErrTxConflict
	}
	snapshot := make(map[uint64]domain.Ticket, len(s.tickets))
	for id, t := range s.tickets {
		snapshot[id] = t
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.tickets = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *fakeStore) GetEvent(_ context.Context, id uint64) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return ev, nil
}

func (s *fakeStore) GetTicketType(_ context.Context, id uint64) (domain.TicketType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tt, ok := s.ticketTypes[id]
	if !ok {
		return domain.TicketType{}, domain.ErrTicketTypeNotFound
	}
	return tt, nil
}

func (s *fakeStore) GetUser(_ context.Context, id uint64) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeStore) LockPool(ctx context.Context, pool domain.PoolRef) (int, error) {
	return s.PoolCapacity(ctx, pool)
}

func (s *fakeStore) PoolCapacity(_ context.Context, pool domain.PoolRef) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pool.IsTicketType() {
		tt, ok := s.ticketTypes[pool.TicketTypeID]
		if !ok || tt.EventID != pool.EventID {
			return 0, domain.ErrTicketTypeNotFound
		}
		return tt.Capacity, nil
	}
	ev, ok := s.events[pool.EventID]
	if !ok {
		return 0, domain.ErrEventNotFound
	}
	return ev.Capacity, nil
}

func (s *fakeStore) BookedQuantity(_ context.Context, pool domain.PoolRef) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookedLocked(pool), nil
}

func (s *fakeStore) bookedLocked(pool domain.PoolRef) int {
	booked := 0
	for _, t := range s.tickets {
		if t.Status != domain.TicketStatusActive {
			continue
		}
		if t.Pool() == pool {
			booked += t.Quantity
		}
	}
	return booked
}

func (s *fakeStore) CreateTicket(_ context.Context, t *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createdCodes = append(s.createdCodes, t.Code)
	if s.failCreate != nil {
		return s.failCreate
	}
	if s.dupCodesLeft > 0 {
		s.dupCodesLeft--
		return domain.ErrDuplicateCode
	}
	for _, existing := range s.tickets {
		if existing.Code == t.Code {
			return domain.ErrDuplicateCode
		}
	}
	s.nextID++
	t.ID = s.nextID
	s.tickets[t.ID] = *t
	return nil
}

func (s *fakeStore) GetTicket(_ context.Context, id uint64) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return t, nil
}

func (s *fakeStore) CancelTicket(_ context.Context, id uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return domain.ErrTicketNotFound
	}
	if t.Status != domain.TicketStatusActive {
		return domain.ErrAlreadyCancelled
	}
	t.Status = domain.TicketStatusCancelled
	t.CancelledAt = &at
	s.tickets[id] = t
	return nil
}

func (s *fakeStore) ListTicketsByUser(_ context.Context, userID uint64) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Ticket, 0)
	for _, t := range s.tickets {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) ListTicketsByEvent(_ context.Context, eventID uint64) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Ticket, 0)
	for _, t := range s.tickets {
		if t.EventID == eventID {
			out = append(out, t)
		}
	}
	return out, nil
}

// activeQuantity sums ACTIVE ticket quantities for a pool, for assertions.
func (s *fakeStore) activeQuantity(pool domain.PoolRef) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookedLocked(pool)
}

// fakeNotifier records dispatched confirmations and signals each one.
type fakeNotifier struct {
	mu     sync.Mutex
	events []queue.BookingConfirmedEvent
	err    error
	done   chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{done: make(chan struct{}, 16)}
}

func (n *fakeNotifier) BookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	n.mu.Lock()
	n.events = append(n.events, ev)
	err := n.err
	n.mu.Unlock()
	n.done <- struct{}{}
	return err
}

package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/onvent/event-booking/internal/domain"
)

// fakeStore tracks capacity and booked counts per pool in memory. LockPool
// and PoolCapacity behave identically here; lock semantics are exercised by
// the service-level concurrency tests.
type fakeStore struct {
	capacity map[domain.PoolRef]int
	booked   map[domain.PoolRef]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		capacity: make(map[domain.PoolRef]int),
		booked:   make(map[domain.PoolRef]int),
	}
}

func (s *fakeStore) LockPool(ctx context.Context, pool domain.PoolRef) (int, error) {
	return s.PoolCapacity(ctx, pool)
}

func (s *fakeStore) PoolCapacity(_ context.Context, pool domain.PoolRef) (int, error) {
	capacity, ok := s.capacity[pool]
	if !ok {
		if pool.IsTicketType() {
			return 0, domain.ErrTicketTypeNotFound
		}
		return 0, domain.ErrEventNotFound
	}
	return capacity, nil
}

func (s *fakeStore) BookedQuantity(_ context.Context, pool domain.PoolRef) (int, error) {
	return s.booked[pool], nil
}

func TestLedger_CheckAvailability(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	pool := domain.EventPool(1)
	store.capacity[pool] = 10
	store.booked[pool] = 4

	avail, err := New(store).CheckAvailability(context.Background(), pool)
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if avail != (Availability{Capacity: 10, Booked: 4, Available: 6}) {
		t.Fatalf("availability = %+v", avail)
	}

	_, err = New(store).CheckAvailability(context.Background(), domain.EventPool(99))
	if !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("missing event: got %v", err)
	}
	_, err = New(store).CheckAvailability(context.Background(), domain.TicketTypePool(1, 99))
	if !errors.Is(err, domain.ErrTicketTypeNotFound) {
		t.Fatalf("missing ticket type: got %v", err)
	}
}

func TestLedger_TryReserve(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	pool := domain.TicketTypePool(1, 2)
	store.capacity[pool] = 5
	store.booked[pool] = 3
	l := New(store)

	avail, err := l.TryReserve(context.Background(), pool, 2)
	if err != nil {
		t.Fatalf("TryReserve: %v", err)
	}
	if avail != (Availability{Capacity: 5, Booked: 5, Available: 0}) {
		t.Fatalf("post-reserve availability = %+v", avail)
	}

	if _, err := l.TryReserve(context.Background(), pool, 3); !errors.Is(err, domain.ErrInsufficientCapacity) {
		t.Fatalf("over-capacity reserve: got %v", err)
	}
	if _, err := l.TryReserve(context.Background(), pool, 0); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Fatalf("zero quantity: got %v", err)
	}
}

func TestLedger_Release(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	pool := domain.EventPool(1)
	store.capacity[pool] = 5
	store.booked[pool] = 2
	l := New(store)

	if err := l.Release(context.Background(), pool, 2); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := l.Release(context.Background(), pool, 3); err == nil {
		t.Fatalf("release beyond booked count must fail")
	}
	if err := l.Release(context.Background(), domain.EventPool(99), 1); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("missing pool: got %v", err)
	}
}

package domain

import (
	"errors"
	"regexp"
	"testing"
)

func TestParseTicketStatus(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"ACTIVE", "CANCELLED"} {
		got, err := ParseTicketStatus(valid)
		if err != nil {
			t.Fatalf("ParseTicketStatus(%q): %v", valid, err)
		}
		if string(got) != valid {
			t.Fatalf("ParseTicketStatus(%q) = %q", valid, got)
		}
	}

	for _, invalid := range []string{"", "active", "PENDING", "REFUNDED"} {
		if _, err := ParseTicketStatus(invalid); err == nil {
			t.Fatalf("ParseTicketStatus(%q): expected error", invalid)
		}
	}
}

func TestNewTicketCode(t *testing.T) {
	t.Parallel()

	pattern := regexp.MustCompile(`^TKT-[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := NewTicketCode()
		if !pattern.MatchString(code) {
			t.Fatalf("code %q does not match %s", code, pattern)
		}
		if seen[code] {
			t.Fatalf("code %q generated twice in 100 draws", code)
		}
		seen[code] = true
	}
}

func TestTicketPool(t *testing.T) {
	t.Parallel()

	plain := Ticket{EventID: 7, Quantity: 2}
	if got := plain.Pool(); got != EventPool(7) || got.IsTicketType() {
		t.Fatalf("event-level ticket pool = %+v", got)
	}

	typed := Ticket{EventID: 7, TicketTypeID: 3}
	if got := typed.Pool(); got != TicketTypePool(7, 3) || !got.IsTicketType() {
		t.Fatalf("ticket-type pool = %+v", got)
	}
}

func TestCapacityError(t *testing.T) {
	t.Parallel()

	err := NewCapacityError(2, 5)
	if !errors.Is(err, ErrInsufficientCapacity) {
		t.Fatalf("CapacityError should match ErrInsufficientCapacity")
	}
	if got, want := err.Error(), "only 2 seats remain, requested 5"; got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
	if got, want := NewCapacityError(1, 2).Error(), "only 1 seat remains, requested 2"; got != want {
		t.Fatalf("singular message = %q, want %q", got, want)
	}
}

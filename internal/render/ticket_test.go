package render

import (
	"strings"
	"testing"
)

func sampleDoc() TicketDocument {
	return TicketDocument{
		TicketID:      7,
		Code:          "TKT-AB12CD34",
		HolderName:    "Alice",
		HolderEmail:   "alice@example.com",
		EventID:       1,
		EventTitle:    "Tech Summit",
		EventLocation: "Berlin",
		StartsAt:      "2025-09-01T19:00:00Z",
		Quantity:      3,
		TotalCents:    7500,
		PurchasedAt:   "2025-08-30T10:00:00Z",
	}
}

func TestQRPayload(t *testing.T) {
	got := QRPayload(sampleDoc())
	want := "ONVENT;TICKET=TKT-AB12CD34;EVENT=1;QTY=3"
	if got != want {
		t.Fatalf("QRPayload = %q, want %q", got, want)
	}
}

func TestConfirmation(t *testing.T) {
	out := Confirmation(sampleDoc())

	for _, want := range []string{
		"Ticket Code: TKT-AB12CD34",
		"Event:       Tech Summit",
		"Location:    Berlin",
		"Holder:      Alice <alice@example.com>",
		"Seats:       3",
		"Total:       75.00",
		"QR:          ONVENT;TICKET=TKT-AB12CD34;EVENT=1;QTY=3",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("confirmation missing %q:\n%s", want, out)
		}
	}
	if !strings.HasPrefix(out, "==== EVENT TICKET ====\n") {
		t.Fatalf("unexpected header:\n%s", out)
	}
}

func TestFormatCents(t *testing.T) {
	cases := map[uint32]string{
		0:    "0.00",
		5:    "0.05",
		100:  "1.00",
		2550: "25.50",
	}
	for cents, want := range cases {
		if got := formatCents(cents); got != want {
			t.Fatalf("formatCents(%d) = %q, want %q", cents, got, want)
		}
	}
}

// Package render produces the human-presentable confirmation artifact for a
// ticket. It is a pure function of ticket data with no side effects on the
// ledger; delivery (queue consumer, HTTP download) is the caller's concern.
package render

import (
	"fmt"
	"strings"
)

// TicketDocument is the field set the confirmation shows. Timestamps arrive
// pre-formatted so the renderer stays independent of how callers store them.
type TicketDocument struct {
	TicketID      uint64
	Code          string
	HolderName    string
	HolderEmail   string
	EventID       uint64
	EventTitle    string
	EventLocation string
	StartsAt      string
	Quantity      int
	TotalCents    uint32
	PurchasedAt   string
}

// QRPayload is the string encoded into the ticket's QR code. Scanners at the
// venue parse it back into the code and quantity for entry checks.
func QRPayload(doc TicketDocument) string {
	return fmt.Sprintf("ONVENT;TICKET=%s;EVENT=%d;QTY=%d", doc.Code, doc.EventID, doc.Quantity)
}

// Confirmation renders the plain-text ticket. The layout mirrors the fields
// a printed ticket carries: header, event block, holder block, purchase
// details and the QR payload line.
func Confirmation(doc TicketDocument) string {
	var b strings.Builder
	b.WriteString("==== EVENT TICKET ====\n")
	fmt.Fprintf(&b, "Ticket Code: %s\n", doc.Code)
	fmt.Fprintf(&b, "Event:       %s\n", doc.EventTitle)
	fmt.Fprintf(&b, "Location:    %s\n", doc.EventLocation)
	fmt.Fprintf(&b, "Starts:      %s\n", doc.StartsAt)
	fmt.Fprintf(&b, "Holder:      %s <%s>\n", doc.HolderName, doc.HolderEmail)
	fmt.Fprintf(&b, "Seats:       %d\n", doc.Quantity)
	fmt.Fprintf(&b, "Total:       %s\n", formatCents(doc.TotalCents))
	fmt.Fprintf(&b, "Purchased:   %s\n", doc.PurchasedAt)
	fmt.Fprintf(&b, "QR:          %s\n", QRPayload(doc))
	b.WriteString("======================\n")
	return b.String()
}

func formatCents(cents uint32) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

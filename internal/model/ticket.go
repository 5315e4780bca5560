package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketStatus enumerates ticket states.
type TicketStatus string

const (
	TicketPending   TicketStatus = "PENDING"
	TicketSold      TicketStatus = "SOLD"
	TicketCancelled TicketStatus = "CANCELLED"
)

// Ticket is a seat sold (or being sold) for a segment of a trip.  Only SOLD
// tickets occupy a seat and count against trip capacity.
type Ticket struct {
	ID         uint64          // tickets.id
	PurchaseID uint64          // tickets.purchase_id
	TripID     uint64          // tickets.trip_id
	SeatNumber string          // tickets.seat_number
	HolderID   uint64          // tickets.holder_id
	FromStopID uint64          // tickets.from_stop_id
	ToStopID   uint64          // tickets.to_stop_id
	FromOrder  int             // tickets.from_order
	ToOrder    int             // tickets.to_order
	Status     TicketStatus    // tickets.status
	Price      decimal.Decimal // tickets.price
	CreatedAt  time.Time       // tickets.created_at
	UpdatedAt  time.Time       // tickets.updated_at
}

// Segment returns the stop-order interval covered by the ticket.
func (t Ticket) Segment() Segment { return Segment{From: t.FromOrder, To: t.ToOrder} }

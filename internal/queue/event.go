// Package queue defines the message payloads exchanged over the message
// broker and the background consumer that records them.
package queue

import "time"

// Queue names.  Both queues are durable and published to through the
// default exchange.
const (
	PurchaseConfirmedQueue = "purchase.confirmed"
	HoldsExpiredQueue      = "holds.expired"
)

// PurchaseConfirmedEvent is published when a purchase's tickets have been
// promoted to SOLD.  It carries enough detail for downstream consumers to
// notify the passenger without querying the primary database.
type PurchaseConfirmedEvent struct {
	PurchaseID  uint64       `json:"purchase_id"`
	TripID      uint64       `json:"trip_id"`
	HolderID    uint64       `json:"holder_id"`
	Total       string       `json:"total"`
	Tickets     []TicketLine `json:"tickets"`
	ConfirmedAt time.Time    `json:"confirmed_at"`
}

// TicketLine is one sold seat of a purchase.
type TicketLine struct {
	TicketID   uint64 `json:"ticket_id"`
	SeatNumber string `json:"seat_number"`
	FromStopID uint64 `json:"from_stop_id"`
	ToStopID   uint64 `json:"to_stop_id"`
	Price      string `json:"price"`
}

// HoldsExpiredEvent is published after a sweep expired at least one hold.
type HoldsExpiredEvent struct {
	Holds   []ExpiredHold `json:"holds"`
	SweptAt time.Time     `json:"swept_at"`
}

// ExpiredHold identifies a hold released by the sweep.
type ExpiredHold struct {
	HoldID     uint64    `json:"hold_id"`
	TripID     uint64    `json:"trip_id"`
	SeatNumber string    `json:"seat_number"`
	HolderID   uint64    `json:"holder_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

package model

import "time"

// HoldStatus is HOLD while the reservation is live and EXPIRED afterwards.
// The transition is one-way.
type HoldStatus string

const (
	HoldActive  HoldStatus = "HOLD"
	HoldExpired HoldStatus = "EXPIRED"
)

// Hold is a time-bounded soft reservation of a seat for a segment of a trip.
// Holds prevent concurrent purchasers from grabbing the same seat+segment
// while a checkout is in progress.  The stop orders are stored alongside the
// stop ids so that overlap queries need no join.
//
// Fields:
//  ID         – primary key identifier.
//  TripID     – trip for which the seat is held.
//  SeatNumber – seat being held.
//  HolderID   – user holding the seat.
//  FromStopID – boarding stop.
//  ToStopID   – alighting stop.
//  FromOrder  – order of the boarding stop.
//  ToOrder    – order of the alighting stop.
//  Status     – HOLD or EXPIRED.
//  ExpiresAt  – when the hold stops blocking the seat.
//  CreatedAt  – when the hold was created.
type Hold struct {
	ID         uint64     // holds.id
	TripID     uint64     // holds.trip_id
	SeatNumber string     // holds.seat_number
	HolderID   uint64     // holds.holder_id
	FromStopID uint64     // holds.from_stop_id
	ToStopID   uint64     // holds.to_stop_id
	FromOrder  int        // holds.from_order
	ToOrder    int        // holds.to_order
	Status     HoldStatus // holds.status
	ExpiresAt  time.Time  // holds.expires_at
	CreatedAt  time.Time  // holds.created_at
}

// Segment returns the stop-order interval covered by the hold.
func (h Hold) Segment() Segment { return Segment{From: h.FromOrder, To: h.ToOrder} }

// ActiveAt reports whether the hold still blocks its seat at time now.
func (h Hold) ActiveAt(now time.Time) bool {
	return h.Status == HoldActive && h.ExpiresAt.After(now)
}

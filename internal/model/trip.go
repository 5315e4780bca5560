package model

import "time"

// TripStatus enumerates the lifecycle states of a trip.
type TripStatus string

const (
	TripScheduled TripStatus = "SCHEDULED"
	TripBoarding  TripStatus = "BOARDING"
	TripDeparted  TripStatus = "DEPARTED"
	TripArrived   TripStatus = "ARRIVED"
	TripCancelled TripStatus = "CANCELLED"
)

// MaxOverbookingPercent is the upper bound accepted for Trip.OverbookingPercent.
const MaxOverbookingPercent = 15

// tripTransitions lists the statuses reachable from each status.
// DEPARTED→CANCELLED is further restricted to trips without sold tickets.
var tripTransitions = map[TripStatus][]TripStatus{
	TripScheduled: {TripBoarding, TripCancelled},
	TripBoarding:  {TripDeparted, TripCancelled},
	TripDeparted:  {TripArrived, TripCancelled},
}

// CanTransition reports whether the status machine allows moving from s to next.
func (s TripStatus) CanTransition(next TripStatus) bool {
	for _, t := range tripTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s TripStatus) Terminal() bool { return s == TripArrived || s == TripCancelled }

// Sellable reports whether holds and purchases may be opened on a trip in
// this status.
func (s TripStatus) Sellable() bool { return s == TripScheduled || s == TripBoarding }

// Valid reports whether s is a known status.
func (s TripStatus) Valid() bool {
	switch s {
	case TripScheduled, TripBoarding, TripDeparted, TripArrived, TripCancelled:
		return true
	}
	return false
}

// Trip is a scheduled run of a bus along a route.
//
// Fields:
//  ID                 – primary key identifier.
//  BusID              – bus operating the trip.
//  RouteID            – route served.
//  Status             – see TripStatus.
//  OverbookingPercent – extra sellable capacity, 0..15.
//  Capacity           – physical capacity copied from the bus.
//  DepartsAt          – scheduled departure (UTC).
//  ArrivesAt          – scheduled arrival (UTC), after DepartsAt.
type Trip struct {
	ID                 uint64     // trips.id
	BusID              uint64     // trips.bus_id
	RouteID            uint64     // trips.route_id
	Status             TripStatus // trips.status
	OverbookingPercent int        // trips.overbooking_percent
	Capacity           int        // trips.capacity
	DepartsAt          time.Time  // trips.departs_at
	ArrivesAt          time.Time  // trips.arrives_at
	CreatedAt          time.Time  // trips.created_at
	UpdatedAt          time.Time  // trips.updated_at
}

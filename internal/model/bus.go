package model

// Seat types.
const (
	SeatStandard   = "STANDARD"
	SeatPremium    = "PREMIUM"
	SeatAccessible = "ACCESSIBLE"
)

// Bus is a vehicle assigned to trips.  Capacity is the physical number of
// seats and is copied onto a trip when the trip is scheduled.
type Bus struct {
	ID       uint64 // buses.id
	Plate    string // buses.plate
	Capacity int    // buses.capacity
}

// Seat describes a physical seat on a bus.  Number is unique per bus and is
// the identifier passengers see (e.g. "1A").
//
// Fields:
//  ID       – primary key identifier.
//  BusID    – bus to which this seat belongs.
//  Number   – seat label unique within the bus.
//  SeatType – STANDARD, PREMIUM or ACCESSIBLE.
type Seat struct {
	ID       uint64 // seats.id
	BusID    uint64 // seats.bus_id
	Number   string // seats.seat_number
	SeatType string // seats.seat_type
}

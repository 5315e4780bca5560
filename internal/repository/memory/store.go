// Package memory is an in-process implementation of the booking ports.  It
// serialises transactions with a mutex and rolls back by restoring a
// snapshot, which gives the same all-or-nothing behaviour as the MySQL
// store.  It backs the server's development mode and the engine's tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

type state struct {
	buses     map[uint64]model.Bus
	seats     map[uint64]model.Seat
	trips     map[uint64]model.Trip
	holds     map[uint64]model.Hold
	tickets   map[uint64]model.Ticket
	purchases map[uint64]model.Purchase
	nextID    uint64
}

func newState() *state {
	return &state{
		buses:     map[uint64]model.Bus{},
		seats:     map[uint64]model.Seat{},
		trips:     map[uint64]model.Trip{},
		holds:     map[uint64]model.Hold{},
		tickets:   map[uint64]model.Ticket{},
		purchases: map[uint64]model.Purchase{},
	}
}

func (s *state) clone() *state {
	c := &state{
		buses:     make(map[uint64]model.Bus, len(s.buses)),
		seats:     make(map[uint64]model.Seat, len(s.seats)),
		trips:     make(map[uint64]model.Trip, len(s.trips)),
		holds:     make(map[uint64]model.Hold, len(s.holds)),
		tickets:   make(map[uint64]model.Ticket, len(s.tickets)),
		purchases: make(map[uint64]model.Purchase, len(s.purchases)),
		nextID:    s.nextID,
	}
	for k, v := range s.buses {
		c.buses[k] = v
	}
	for k, v := range s.seats {
		c.seats[k] = v
	}
	for k, v := range s.trips {
		c.trips[k] = v
	}
	for k, v := range s.holds {
		c.holds[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.purchases {
		c.purchases[k] = v
	}
	return c
}

func (s *state) id() uint64 {
	s.nextID++
	return s.nextID
}

// Store holds inventory in memory.  Route topology lives under its own lock
// because it is reference data read from inside transactions.
type Store struct {
	mu   sync.Mutex
	data *state

	topoMu sync.RWMutex
	routes map[uint64]model.Route
	stops  map[uint64]model.Stop
	topoID uint64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		data:   newState(),
		routes: map[uint64]model.Route{},
		stops:  map[uint64]model.Stop{},
	}
}

var _ booking.Store = (*Store)(nil)
var _ booking.RouteTopologyProvider = (*Store)(nil)

// WithinTx runs fn with exclusive access to the store.  When fn fails the
// store is restored to its state before the call.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repo booking.InventoryRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	if err := fn(ctx, &view{st: s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) locked() (*view, func()) {
	s.mu.Lock()
	return &view{st: s.data}, s.mu.Unlock
}

// Seeding helpers.

// AddRoute registers a route with stops named after their position.  It
// returns the route and its stops in travel order.
func (s *Store) AddRoute(name string, stopNames ...string) (model.Route, []model.Stop) {
	s.topoMu.Lock()
	defer s.topoMu.Unlock()
	s.topoID++
	r := model.Route{ID: s.topoID, Name: name}
	s.routes[r.ID] = r
	stops := make([]model.Stop, 0, len(stopNames))
	for i, n := range stopNames {
		s.topoID++
		st := model.Stop{ID: s.topoID, RouteID: r.ID, Name: n, Order: i}
		s.stops[st.ID] = st
		stops = append(stops, st)
	}
	return r, stops
}

// AddBus registers a bus with the given seat numbers.
func (s *Store) AddBus(plate string, capacity int, seatNumbers ...string) model.Bus {
	v, unlock := s.locked()
	defer unlock()
	b := model.Bus{ID: v.st.id(), Plate: plate, Capacity: capacity}
	v.st.buses[b.ID] = b
	for _, n := range seatNumbers {
		seat := model.Seat{ID: v.st.id(), BusID: b.ID, Number: n, SeatType: model.SeatStandard}
		v.st.seats[seat.ID] = seat
	}
	return b
}

// PutTrip stores a trip as given, assigning an id when it has none.
func (s *Store) PutTrip(t model.Trip) model.Trip {
	v, unlock := s.locked()
	defer unlock()
	if t.ID == 0 {
		t.ID = v.st.id()
	}
	v.st.trips[t.ID] = t
	return t
}

// PutHold stores a hold as given, assigning an id when it has none.
func (s *Store) PutHold(h model.Hold) model.Hold {
	v, unlock := s.locked()
	defer unlock()
	if h.ID == 0 {
		h.ID = v.st.id()
	}
	v.st.holds[h.ID] = h
	return h
}

// PutTicket stores a ticket as given, assigning an id when it has none.
func (s *Store) PutTicket(t model.Ticket) model.Ticket {
	v, unlock := s.locked()
	defer unlock()
	if t.ID == 0 {
		t.ID = v.st.id()
	}
	v.st.tickets[t.ID] = t
	return t
}

// Tickets returns every ticket sorted by id.
func (s *Store) Tickets() []model.Ticket {
	v, unlock := s.locked()
	defer unlock()
	out := make([]model.Ticket, 0, len(v.st.tickets))
	for _, t := range v.st.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HoldCount returns the number of stored holds in any status.
func (s *Store) HoldCount() int {
	v, unlock := s.locked()
	defer unlock()
	return len(v.st.holds)
}

// Route topology.

func (s *Store) GetRoute(_ context.Context, routeID uint64) (*model.Route, error) {
	s.topoMu.RLock()
	defer s.topoMu.RUnlock()
	r, ok := s.routes[routeID]
	if !ok {
		return nil, fmt.Errorf("route %d: %w", routeID, booking.ErrNoRecord)
	}
	return &r, nil
}

func (s *Store) GetStop(_ context.Context, stopID uint64) (*model.Stop, error) {
	s.topoMu.RLock()
	defer s.topoMu.RUnlock()
	st, ok := s.stops[stopID]
	if !ok {
		return nil, fmt.Errorf("stop %d: %w", stopID, booking.ErrNoRecord)
	}
	return &st, nil
}

func (s *Store) ListStops(_ context.Context, routeID uint64) ([]model.Stop, error) {
	s.topoMu.RLock()
	defer s.topoMu.RUnlock()
	out := make([]model.Stop, 0)
	for _, st := range s.stops {
		if st.RouteID == routeID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

// Inventory methods outside a transaction.

func (s *Store) GetBus(ctx context.Context, busID uint64) (*model.Bus, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.GetBus(ctx, busID)
}

func (s *Store) GetSeat(ctx context.Context, busID uint64, number string) (*model.Seat, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.GetSeat(ctx, busID, number)
}

func (s *Store) LockSeat(ctx context.Context, busID uint64, number string) (*model.Seat, error) {
	return s.GetSeat(ctx, busID, number)
}

func (s *Store) CreateTrip(ctx context.Context, t *model.Trip) error {
	v, unlock := s.locked()
	defer unlock()
	return v.CreateTrip(ctx, t)
}

func (s *Store) GetTrip(ctx context.Context, tripID uint64) (*model.Trip, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.GetTrip(ctx, tripID)
}

func (s *Store) LockTrip(ctx context.Context, tripID uint64) (*model.Trip, error) {
	return s.GetTrip(ctx, tripID)
}

func (s *Store) UpdateTripStatus(ctx context.Context, tripID uint64, from, to model.TripStatus) (bool, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.UpdateTripStatus(ctx, tripID, from, to)
}

func (s *Store) UpdateTripOverbooking(ctx context.Context, tripID uint64, percent int) error {
	v, unlock := s.locked()
	defer unlock()
	return v.UpdateTripOverbooking(ctx, tripID, percent)
}

func (s *Store) CreateHold(ctx context.Context, h *model.Hold) error {
	v, unlock := s.locked()
	defer unlock()
	return v.CreateHold(ctx, h)
}

func (s *Store) GetHold(ctx context.Context, holdID uint64) (*model.Hold, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.GetHold(ctx, holdID)
}

func (s *Store) ExpireHold(ctx context.Context, holdID uint64) (bool, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.ExpireHold(ctx, holdID)
}

func (s *Store) ListHolds(ctx context.Context, tripID uint64, status model.HoldStatus) ([]model.Hold, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.ListHolds(ctx, tripID, status)
}

func (s *Store) FindOverlappingHolds(ctx context.Context, tripID uint64, seat string, seg model.Segment, now time.Time) ([]model.Hold, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.FindOverlappingHolds(ctx, tripID, seat, seg, now)
}

func (s *Store) FindActiveHoldsByTripAndHolder(ctx context.Context, tripID, holderID uint64, now time.Time) ([]model.Hold, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.FindActiveHoldsByTripAndHolder(ctx, tripID, holderID, now)
}

func (s *Store) FindActiveHoldsByTrip(ctx context.Context, tripID uint64, now time.Time) ([]model.Hold, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.FindActiveHoldsByTrip(ctx, tripID, now)
}

func (s *Store) FindExpiredHolds(ctx context.Context, before time.Time) ([]model.Hold, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.FindExpiredHolds(ctx, before)
}

func (s *Store) ExpireHoldsByTrip(ctx context.Context, tripID uint64) (int64, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.ExpireHoldsByTrip(ctx, tripID)
}

func (s *Store) DeleteExpiredHolds(ctx context.Context) (int64, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.DeleteExpiredHolds(ctx)
}

func (s *Store) CreateTickets(ctx context.Context, tickets []*model.Ticket) error {
	v, unlock := s.locked()
	defer unlock()
	return v.CreateTickets(ctx, tickets)
}

func (s *Store) ListTicketsByPurchase(ctx context.Context, purchaseID uint64) ([]model.Ticket, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.ListTicketsByPurchase(ctx, purchaseID)
}

func (s *Store) UpdateTicketStatus(ctx context.Context, ticketID uint64, from, to model.TicketStatus) (bool, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.UpdateTicketStatus(ctx, ticketID, from, to)
}

func (s *Store) FindOverlappingSold(ctx context.Context, tripID uint64, seat string, seg model.Segment) ([]model.Ticket, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.FindOverlappingSold(ctx, tripID, seat, seg)
}

func (s *Store) CountSold(ctx context.Context, tripID uint64) (int, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.CountSold(ctx, tripID)
}

func (s *Store) CreatePurchase(ctx context.Context, p *model.Purchase) error {
	v, unlock := s.locked()
	defer unlock()
	return v.CreatePurchase(ctx, p)
}

func (s *Store) GetPurchase(ctx context.Context, purchaseID uint64) (*model.Purchase, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.GetPurchase(ctx, purchaseID)
}

func (s *Store) LockPurchase(ctx context.Context, purchaseID uint64) (*model.Purchase, error) {
	return s.GetPurchase(ctx, purchaseID)
}

func (s *Store) UpdatePurchaseStatus(ctx context.Context, purchaseID uint64, from, to model.PurchaseStatus) (bool, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.UpdatePurchaseStatus(ctx, purchaseID, from, to)
}

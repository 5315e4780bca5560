package booking_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type staticConfig map[string]string

func (c staticConfig) GetString(_ context.Context, key string) (string, error) {
	v, ok := c[key]
	if !ok {
		return "", fmt.Errorf("setting %q is not set", key)
	}
	return v, nil
}

func (c staticConfig) GetInt(ctx context.Context, key string) (int, error) {
	v, err := c.GetString(ctx, key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

func (c staticConfig) GetDecimal(ctx context.Context, key string) (decimal.Decimal, error) {
	v, err := c.GetString(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(v)
}

type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []model.Purchase
	expired   [][]model.Hold
}

func (p *recordingPublisher) PublishPurchaseConfirmed(_ context.Context, pur model.Purchase, _ []model.Ticket) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, pur)
	return nil
}

func (p *recordingPublisher) PublishHoldsExpired(_ context.Context, holds []model.Hold) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired = append(p.expired, holds)
	return nil
}

// fixture is a five-stop route A..E (orders 0..4) served by one 40 seat bus
// with a scheduled trip.
type fixture struct {
	store  *memory.Store
	clock  *fakeClock
	config staticConfig
	pub    *recordingPublisher
	engine *booking.Engine
	route  model.Route
	stops  []model.Stop
	bus    model.Bus
	trip   model.Trip
}

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.New(),
		clock:  &fakeClock{now: t0},
		config: staticConfig{booking.SettingHoldTTL: "10", booking.SettingBaseFare: "100.00"},
		pub:    &recordingPublisher{},
	}
	f.route, f.stops = f.store.AddRoute("coastal", "A", "B", "C", "D", "E")
	f.bus = f.store.AddBus("BUS-1", 40, "1A", "1B", "2A", "2B")
	f.trip = f.store.PutTrip(model.Trip{
		BusID:     f.bus.ID,
		RouteID:   f.route.ID,
		Status:    model.TripScheduled,
		Capacity:  f.bus.Capacity,
		DepartsAt: t0.Add(24 * time.Hour),
		ArrivesAt: t0.Add(30 * time.Hour),
		CreatedAt: t0,
		UpdatedAt: t0,
	})
	f.engine = booking.New(booking.Deps{
		Store:    f.store,
		Topology: f.store,
		Config:   f.config,
		Clock:    f.clock,
		Hooks:    booking.Hooks{Publisher: f.pub},
	})
	return f
}

// stop returns the id of the stop at order i.
func (f *fixture) stop(i int) uint64 { return f.stops[i].ID }

func (f *fixture) hold(holder uint64, seat string, from, to int) (*model.Hold, error) {
	return f.engine.Coordinator.CreateHold(context.Background(), booking.HoldRequest{
		TripID:     f.trip.ID,
		SeatNumber: seat,
		HolderID:   holder,
		FromStopID: f.stop(from),
		ToStopID:   f.stop(to),
	})
}

func (f *fixture) sold(seat string, from, to int) model.Ticket {
	return f.store.PutTicket(model.Ticket{
		TripID:     f.trip.ID,
		SeatNumber: seat,
		HolderID:   999,
		FromStopID: f.stop(from),
		ToStopID:   f.stop(to),
		FromOrder:  from,
		ToOrder:    to,
		Status:     model.TicketSold,
		Price:      decimal.NewFromInt(1),
	})
}

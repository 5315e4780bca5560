package booking

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// ErrNoRecord must be wrapped by repository implementations when a lookup
// yields no row.
var ErrNoRecord = errors.New("no record")

// Clock abstracts the current time so that expiry logic is deterministic in
// tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ConfigProvider exposes key/value tunables.  Implementations return an
// error when a key is absent or cannot be parsed as the requested type.
type ConfigProvider interface {
	GetInt(ctx context.Context, key string) (int, error)
	GetDecimal(ctx context.Context, key string) (decimal.Decimal, error)
	GetString(ctx context.Context, key string) (string, error)
}

// RouteTopologyProvider resolves stops and their order along a route.
// ListStops returns stops sorted by Order.
type RouteTopologyProvider interface {
	GetRoute(ctx context.Context, routeID uint64) (*model.Route, error)
	GetStop(ctx context.Context, stopID uint64) (*model.Stop, error)
	ListStops(ctx context.Context, routeID uint64) ([]model.Stop, error)
}

// InventoryRepository is the persistence port for trips, seats, holds,
// tickets and purchases.  Lock* methods take a row lock for the rest of the
// enclosing transaction; outside a transaction they behave like Get*.
// Update* methods are conditional on the current status and report whether
// a row was changed.
type InventoryRepository interface {
	GetBus(ctx context.Context, busID uint64) (*model.Bus, error)
	GetSeat(ctx context.Context, busID uint64, number string) (*model.Seat, error)
	LockSeat(ctx context.Context, busID uint64, number string) (*model.Seat, error)

	CreateTrip(ctx context.Context, t *model.Trip) error
	GetTrip(ctx context.Context, tripID uint64) (*model.Trip, error)
	LockTrip(ctx context.Context, tripID uint64) (*model.Trip, error)
	UpdateTripStatus(ctx context.Context, tripID uint64, from, to model.TripStatus) (bool, error)
	UpdateTripOverbooking(ctx context.Context, tripID uint64, percent int) error

	CreateHold(ctx context.Context, h *model.Hold) error
	GetHold(ctx context.Context, holdID uint64) (*model.Hold, error)
	ExpireHold(ctx context.Context, holdID uint64) (bool, error)
	ListHolds(ctx context.Context, tripID uint64, status model.HoldStatus) ([]model.Hold, error)
	FindOverlappingHolds(ctx context.Context, tripID uint64, seat string, seg model.Segment, now time.Time) ([]model.Hold, error)
	FindActiveHoldsByTripAndHolder(ctx context.Context, tripID, holderID uint64, now time.Time) ([]model.Hold, error)
	FindActiveHoldsByTrip(ctx context.Context, tripID uint64, now time.Time) ([]model.Hold, error)
	FindExpiredHolds(ctx context.Context, before time.Time) ([]model.Hold, error)
	ExpireHoldsByTrip(ctx context.Context, tripID uint64) (int64, error)
	DeleteExpiredHolds(ctx context.Context) (int64, error)

	CreateTickets(ctx context.Context, tickets []*model.Ticket) error
	ListTicketsByPurchase(ctx context.Context, purchaseID uint64) ([]model.Ticket, error)
	UpdateTicketStatus(ctx context.Context, ticketID uint64, from, to model.TicketStatus) (bool, error)
	FindOverlappingSold(ctx context.Context, tripID uint64, seat string, seg model.Segment) ([]model.Ticket, error)
	CountSold(ctx context.Context, tripID uint64) (int, error)

	CreatePurchase(ctx context.Context, p *model.Purchase) error
	GetPurchase(ctx context.Context, purchaseID uint64) (*model.Purchase, error)
	LockPurchase(ctx context.Context, purchaseID uint64) (*model.Purchase, error)
	UpdatePurchaseStatus(ctx context.Context, purchaseID uint64, from, to model.PurchaseStatus) (bool, error)
}

// Transactor runs fn inside one atomic transaction.  The repository passed
// to fn is bound to that transaction; fn returning an error rolls it back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo InventoryRepository) error) error
}

// Store is a repository that can also open transactions.
type Store interface {
	InventoryRepository
	Transactor
}

// PriceCalculator prices a seat for a segment.  totalLegs is the number of
// legs of the whole route.
type PriceCalculator interface {
	Price(ctx context.Context, trip *model.Trip, seat *model.Seat, seg model.Segment, totalLegs int) (decimal.Decimal, error)
}

// EventPublisher delivers domain events to downstream consumers.  Publishing
// is best effort: failures are logged and never undo a committed change.
type EventPublisher interface {
	PublishPurchaseConfirmed(ctx context.Context, p model.Purchase, tickets []model.Ticket) error
	PublishHoldsExpired(ctx context.Context, holds []model.Hold) error
}

// Metrics receives counters about the engine.
type Metrics interface {
	HoldCreated()
	HoldRejected(reason string)
	HoldsSwept(n int64)
	HoldsPurged(n int64)
	PurchaseConfirmed(tickets int)
	PurchaseRejected(reason string)
}

type nopPublisher struct{}

func (nopPublisher) PublishPurchaseConfirmed(context.Context, model.Purchase, []model.Ticket) error {
	return nil
}
func (nopPublisher) PublishHoldsExpired(context.Context, []model.Hold) error { return nil }

type nopMetrics struct{}

func (nopMetrics) HoldCreated()            {}
func (nopMetrics) HoldRejected(string)     {}
func (nopMetrics) HoldsSwept(int64)        {}
func (nopMetrics) HoldsPurged(int64)       {}
func (nopMetrics) PurchaseConfirmed(int)   {}
func (nopMetrics) PurchaseRejected(string) {}

package booking

import (
	"context"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// Capacity summarises the sellable inventory of a trip.
type Capacity struct {
	TripID             uint64 `json:"trip_id"`
	Capacity           int    `json:"capacity"`
	OverbookingPercent int    `json:"overbooking_percent"`
	Sellable           int    `json:"sellable"`
	Sold               int    `json:"sold"`
	Available          int    `json:"available"`
}

// SellableSeats is floor(capacity * (1 + percent/100)), computed in integers.
func SellableSeats(capacity, overbookingPercent int) int {
	return capacity * (100 + overbookingPercent) / 100
}

// AvailableSeats is the sellable capacity left after sold tickets, never
// negative.
func AvailableSeats(capacity, overbookingPercent, sold int) int {
	if n := SellableSeats(capacity, overbookingPercent) - sold; n > 0 {
		return n
	}
	return 0
}

// TripRequest describes a trip to schedule.
type TripRequest struct {
	BusID              uint64
	RouteID            uint64
	DepartsAt          time.Time
	ArrivesAt          time.Time
	OverbookingPercent int
}

// CapacityModel computes trip availability and owns the trip status
// machine.  Active holds do not reduce availability; only SOLD tickets do.
type CapacityModel struct {
	store    Store
	topology RouteTopologyProvider
	clock    Clock
	hooks    Hooks
}

// NewCapacityModel builds a CapacityModel.
func NewCapacityModel(store Store, topology RouteTopologyProvider, clock Clock, hooks Hooks) *CapacityModel {
	if store == nil || topology == nil || clock == nil {
		panic("nil dependency passed to NewCapacityModel")
	}
	return &CapacityModel{store: store, topology: topology, clock: clock, hooks: hooks.withDefaults()}
}

// Capacity returns the capacity summary of a trip.
func (m *CapacityModel) Capacity(ctx context.Context, tripID uint64) (*Capacity, error) {
	trip, err := m.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, lookupErr(err, "trip", tripID)
	}
	sold, err := m.store.CountSold(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return &Capacity{
		TripID:             trip.ID,
		Capacity:           trip.Capacity,
		OverbookingPercent: trip.OverbookingPercent,
		Sellable:           SellableSeats(trip.Capacity, trip.OverbookingPercent),
		Sold:               sold,
		Available:          AvailableSeats(trip.Capacity, trip.OverbookingPercent, sold),
	}, nil
}

// AvailableSeats returns the number of seats still sellable on a trip.
func (m *CapacityModel) AvailableSeats(ctx context.Context, tripID uint64) (int, error) {
	c, err := m.Capacity(ctx, tripID)
	if err != nil {
		return 0, err
	}
	return c.Available, nil
}

func validateOverbooking(percent int) error {
	if percent < 0 || percent > model.MaxOverbookingPercent {
		return invalidArgument("overbooking percent must be within [0,%d], got %d", model.MaxOverbookingPercent, percent)
	}
	return nil
}

// CreateTrip schedules a trip.  Capacity is copied from the bus.
func (m *CapacityModel) CreateTrip(ctx context.Context, req TripRequest) (*model.Trip, error) {
	if err := validateOverbooking(req.OverbookingPercent); err != nil {
		return nil, err
	}
	if req.DepartsAt.IsZero() || !req.ArrivesAt.After(req.DepartsAt) {
		return nil, invalidArgument("arrival must be after departure")
	}
	if _, err := m.topology.GetRoute(ctx, req.RouteID); err != nil {
		return nil, lookupErr(err, "route", req.RouteID)
	}
	var trip *model.Trip
	err := m.store.WithinTx(ctx, func(ctx context.Context, repo InventoryRepository) error {
		bus, err := repo.GetBus(ctx, req.BusID)
		if err != nil {
			return lookupErr(err, "bus", req.BusID)
		}
		now := m.clock.Now()
		t := &model.Trip{
			BusID:              bus.ID,
			RouteID:            req.RouteID,
			Status:             model.TripScheduled,
			OverbookingPercent: req.OverbookingPercent,
			Capacity:           bus.Capacity,
			DepartsAt:          req.DepartsAt.UTC(),
			ArrivesAt:          req.ArrivesAt.UTC(),
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := repo.CreateTrip(ctx, t); err != nil {
			return err
		}
		trip = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trip, nil
}

// SetOverbooking changes the overbooking allowance of a non-terminal trip.
func (m *CapacityModel) SetOverbooking(ctx context.Context, tripID uint64, percent int) (*model.Trip, error) {
	if err := validateOverbooking(percent); err != nil {
		return nil, err
	}
	var trip *model.Trip
	err := m.store.WithinTx(ctx, func(ctx context.Context, repo InventoryRepository) error {
		t, err := repo.LockTrip(ctx, tripID)
		if err != nil {
			return lookupErr(err, "trip", tripID)
		}
		if t.Status.Terminal() {
			return invalidState("trip %d is %s", t.ID, t.Status)
		}
		if err := repo.UpdateTripOverbooking(ctx, t.ID, percent); err != nil {
			return err
		}
		t.OverbookingPercent = percent
		t.UpdatedAt = m.clock.Now()
		trip = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trip, nil
}

// Transition moves a trip along its status machine.  A departed trip may be
// cancelled only while it has no sold tickets.  Cancelling a trip expires
// its active holds in the same transaction.
func (m *CapacityModel) Transition(ctx context.Context, tripID uint64, to model.TripStatus) (*model.Trip, error) {
	if !to.Valid() {
		return nil, invalidArgument("unknown trip status %q", to)
	}
	var (
		trip    *model.Trip
		expired int64
	)
	err := m.store.WithinTx(ctx, func(ctx context.Context, repo InventoryRepository) error {
		t, err := repo.LockTrip(ctx, tripID)
		if err != nil {
			return lookupErr(err, "trip", tripID)
		}
		if !t.Status.CanTransition(to) {
			return invalidState("trip %d cannot move from %s to %s", t.ID, t.Status, to)
		}
		if t.Status == model.TripDeparted && to == model.TripCancelled {
			sold, err := repo.CountSold(ctx, t.ID)
			if err != nil {
				return err
			}
			if sold > 0 {
				return invalidState("trip %d departed with %d sold tickets and cannot be cancelled", t.ID, sold)
			}
		}
		ok, err := repo.UpdateTripStatus(ctx, t.ID, t.Status, to)
		if err != nil {
			return err
		}
		if !ok {
			return invalidState("trip %d changed status concurrently", t.ID)
		}
		if to == model.TripCancelled {
			if expired, err = repo.ExpireHoldsByTrip(ctx, t.ID); err != nil {
				return err
			}
		}
		t.Status = to
		t.UpdatedAt = m.clock.Now()
		trip = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired > 0 {
		m.hooks.Log.Infof("trip %d cancelled, %d holds expired", trip.ID, expired)
	}
	return trip, nil
}

package repository

import (
	"context"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// GetBus loads a bus by id.
func (r *Inventory) GetBus(ctx context.Context, busID uint64) (*model.Bus, error) {
	const q = `SELECT id, plate, capacity FROM buses WHERE id = ?`
	var b model.Bus
	if err := r.q.QueryRowContext(ctx, q, busID).Scan(&b.ID, &b.Plate, &b.Capacity); err != nil {
		return nil, translate(err, "bus", busID)
	}
	return &b, nil
}

const selectSeat = `SELECT id, bus_id, seat_number, seat_type FROM seats WHERE bus_id = ? AND seat_number = ?`

func (r *Inventory) scanSeat(ctx context.Context, q string, busID uint64, number string) (*model.Seat, error) {
	var s model.Seat
	if err := r.q.QueryRowContext(ctx, q, busID, number).Scan(&s.ID, &s.BusID, &s.Number, &s.SeatType); err != nil {
		return nil, translate(err, "seat", number)
	}
	return &s, nil
}

// GetSeat loads the seat with the given number on a bus.
func (r *Inventory) GetSeat(ctx context.Context, busID uint64, number string) (*model.Seat, error) {
	return r.scanSeat(ctx, selectSeat, busID, number)
}

// LockSeat is GetSeat with a row lock.  Hold creation locks the seat so
// that concurrent requests for the same seat are serialised.
func (r *Inventory) LockSeat(ctx context.Context, busID uint64, number string) (*model.Seat, error) {
	return r.scanSeat(ctx, r.forUpdate(selectSeat), busID, number)
}

// CreateTrip inserts a trip and populates its generated id.
func (r *Inventory) CreateTrip(ctx context.Context, t *model.Trip) error {
	const q = `INSERT INTO trips (bus_id, route_id, status, overbooking_percent, capacity, departs_at, arrives_at, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, t.BusID, t.RouteID, t.Status, t.OverbookingPercent, t.Capacity,
		t.DepartsAt.UTC(), t.ArrivesAt.UTC(), t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	if err != nil {
		return translate(err, "trip", t.BusID)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

const selectTrip = `SELECT id, bus_id, route_id, status, overbooking_percent, capacity, departs_at, arrives_at, created_at, updated_at
                    FROM trips WHERE id = ?`

func (r *Inventory) scanTrip(ctx context.Context, q string, tripID uint64) (*model.Trip, error) {
	var t model.Trip
	err := r.q.QueryRowContext(ctx, q, tripID).Scan(
		&t.ID, &t.BusID, &t.RouteID, &t.Status, &t.OverbookingPercent, &t.Capacity,
		&t.DepartsAt, &t.ArrivesAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err, "trip", tripID)
	}
	return &t, nil
}

// GetTrip loads a trip by id.
func (r *Inventory) GetTrip(ctx context.Context, tripID uint64) (*model.Trip, error) {
	return r.scanTrip(ctx, selectTrip, tripID)
}

// LockTrip is GetTrip with a row lock.
func (r *Inventory) LockTrip(ctx context.Context, tripID uint64) (*model.Trip, error) {
	return r.scanTrip(ctx, r.forUpdate(selectTrip), tripID)
}

// UpdateTripStatus moves a trip from one status to another.  It reports
// false when the trip was not in the expected status.
func (r *Inventory) UpdateTripStatus(ctx context.Context, tripID uint64, from, to model.TripStatus) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE trips SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
		to, tripID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// UpdateTripOverbooking stores a new overbooking percent.
func (r *Inventory) UpdateTripOverbooking(ctx context.Context, tripID uint64, percent int) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE trips SET overbooking_percent = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		percent, tripID)
	if err != nil {
		return err
	}
	// MySQL reports zero affected rows when the value is unchanged, so only
	// a missing trip is an error here.
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		if _, err := r.GetTrip(ctx, tripID); err != nil {
			return err
		}
	}
	return nil
}

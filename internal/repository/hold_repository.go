package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// Holds are stored in the holds table with the segment orders
// denormalised, so overlap is a plain range predicate:
// from_order < ? AND to_order > ?.  All timestamps are UTC.

const holdColumns = `id, trip_id, seat_number, holder_id, from_stop_id, to_stop_id, from_order, to_order, status, expires_at, created_at`

func scanHolds(rows *sql.Rows) ([]model.Hold, error) {
	defer rows.Close()
	holds := make([]model.Hold, 0)
	for rows.Next() {
		var h model.Hold
		if err := rows.Scan(&h.ID, &h.TripID, &h.SeatNumber, &h.HolderID, &h.FromStopID, &h.ToStopID,
			&h.FromOrder, &h.ToOrder, &h.Status, &h.ExpiresAt, &h.CreatedAt); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return holds, nil
}

func (r *Inventory) queryHolds(ctx context.Context, where string, args ...any) ([]model.Hold, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+holdColumns+` FROM holds WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	return scanHolds(rows)
}

// CreateHold inserts a hold and populates its generated id.
func (r *Inventory) CreateHold(ctx context.Context, h *model.Hold) error {
	const q = `INSERT INTO holds (trip_id, seat_number, holder_id, from_stop_id, to_stop_id, from_order, to_order, status, expires_at, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, h.TripID, h.SeatNumber, h.HolderID, h.FromStopID, h.ToStopID,
		h.FromOrder, h.ToOrder, h.Status, h.ExpiresAt.UTC(), h.CreatedAt.UTC())
	if err != nil {
		return translate(err, "hold", h.SeatNumber)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// GetHold loads a hold by id.
func (r *Inventory) GetHold(ctx context.Context, holdID uint64) (*model.Hold, error) {
	holds, err := r.queryHolds(ctx, `id = ?`, holdID)
	if err != nil {
		return nil, err
	}
	if len(holds) == 0 {
		return nil, translate(sql.ErrNoRows, "hold", holdID)
	}
	return &holds[0], nil
}

// ExpireHold moves a single hold from HOLD to EXPIRED.
func (r *Inventory) ExpireHold(ctx context.Context, holdID uint64) (bool, error) {
	res, err := r.q.ExecContext(ctx, `UPDATE holds SET status = ? WHERE id = ? AND status = ?`,
		model.HoldExpired, holdID, model.HoldActive)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ListHolds returns the holds of a trip in the given status regardless of
// their expiry.
func (r *Inventory) ListHolds(ctx context.Context, tripID uint64, status model.HoldStatus) ([]model.Hold, error) {
	return r.queryHolds(ctx, `trip_id = ? AND status = ?`, tripID, status)
}

// FindOverlappingHolds returns the active holds on a seat whose segment
// overlaps seg.
func (r *Inventory) FindOverlappingHolds(ctx context.Context, tripID uint64, seat string, seg model.Segment, now time.Time) ([]model.Hold, error) {
	return r.queryHolds(ctx,
		`trip_id = ? AND seat_number = ? AND status = ? AND expires_at > ? AND from_order < ? AND to_order > ?`,
		tripID, seat, model.HoldActive, now.UTC(), seg.To, seg.From)
}

// FindActiveHoldsByTripAndHolder returns the holder's unexpired holds.
func (r *Inventory) FindActiveHoldsByTripAndHolder(ctx context.Context, tripID, holderID uint64, now time.Time) ([]model.Hold, error) {
	return r.queryHolds(ctx, `trip_id = ? AND holder_id = ? AND status = ? AND expires_at > ?`,
		tripID, holderID, model.HoldActive, now.UTC())
}

// FindActiveHoldsByTrip returns every unexpired hold of a trip.
func (r *Inventory) FindActiveHoldsByTrip(ctx context.Context, tripID uint64, now time.Time) ([]model.Hold, error) {
	return r.queryHolds(ctx, `trip_id = ? AND status = ? AND expires_at > ?`, tripID, model.HoldActive, now.UTC())
}

// FindExpiredHolds returns the HOLD rows whose expiry is before the given
// instant.
func (r *Inventory) FindExpiredHolds(ctx context.Context, before time.Time) ([]model.Hold, error) {
	return r.queryHolds(ctx, `status = ? AND expires_at < ?`, model.HoldActive, before.UTC())
}

// ExpireHoldsByTrip expires every HOLD row of a trip.
func (r *Inventory) ExpireHoldsByTrip(ctx context.Context, tripID uint64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `UPDATE holds SET status = ? WHERE trip_id = ? AND status = ?`,
		model.HoldExpired, tripID, model.HoldActive)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpiredHolds removes every EXPIRED row.
func (r *Inventory) DeleteExpiredHolds(ctx context.Context) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM holds WHERE status = ?`, model.HoldExpired)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

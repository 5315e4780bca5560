package repository

import (
	"context"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// CreatePurchase inserts a purchase and populates its generated id.  Status
// should be one of PENDING, CONFIRMED or CANCELLED.
func (r *Inventory) CreatePurchase(ctx context.Context, p *model.Purchase) error {
	const q = `INSERT INTO purchases (trip_id, holder_id, status, total, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, p.TripID, p.HolderID, p.Status, p.Total, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return translate(err, "purchase for trip", p.TripID)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

const selectPurchase = `SELECT id, trip_id, holder_id, status, total, created_at, updated_at FROM purchases WHERE id = ?`

func (r *Inventory) scanPurchase(ctx context.Context, q string, purchaseID uint64) (*model.Purchase, error) {
	var p model.Purchase
	err := r.q.QueryRowContext(ctx, q, purchaseID).Scan(
		&p.ID, &p.TripID, &p.HolderID, &p.Status, &p.Total, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err, "purchase", purchaseID)
	}
	return &p, nil
}

// GetPurchase loads a purchase by id.
func (r *Inventory) GetPurchase(ctx context.Context, purchaseID uint64) (*model.Purchase, error) {
	return r.scanPurchase(ctx, selectPurchase, purchaseID)
}

// LockPurchase is GetPurchase with a row lock.  Confirmation and
// cancellation lock the purchase so they cannot interleave.
func (r *Inventory) LockPurchase(ctx context.Context, purchaseID uint64) (*model.Purchase, error) {
	return r.scanPurchase(ctx, r.forUpdate(selectPurchase), purchaseID)
}

// UpdatePurchaseStatus moves a purchase between statuses, conditional on
// the current one.
func (r *Inventory) UpdatePurchaseStatus(ctx context.Context, purchaseID uint64, from, to model.PurchaseStatus) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE purchases SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
		to, purchaseID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
)

// querier is the subset of *sql.DB and *sql.Tx used by the repositories.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Inventory is the MySQL implementation of booking.Store.  An Inventory
// returned by New runs each statement on its own connection; inside
// WithinTx the callback receives an Inventory bound to the transaction, on
// which the Lock* methods take row locks with SELECT ... FOR UPDATE.
type Inventory struct {
	db   *sql.DB
	q    querier
	inTx bool
}

var _ booking.Store = (*Inventory)(nil)

// NewInventory returns an Inventory bound to the provided database.
func NewInventory(db *sql.DB) *Inventory { return &Inventory{db: db, q: db} }

// DB exposes the underlying connection pool.
func (r *Inventory) DB() *sql.DB { return r.db }

// WithinTx runs fn inside a READ COMMITTED transaction.  The transaction is
// committed when fn returns nil and rolled back otherwise.  Calling WithinTx
// on an Inventory that is already bound to a transaction runs fn in that
// transaction.
func (r *Inventory) WithinTx(ctx context.Context, fn func(ctx context.Context, repo booking.InventoryRepository) error) error {
	if r.inTx {
		return fn(ctx, r)
	}
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(ctx, &Inventory{db: r.db, q: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// forUpdate appends a row lock clause when running inside a transaction.
func (r *Inventory) forUpdate(q string) string {
	if r.inTx {
		return q + " FOR UPDATE"
	}
	return q
}


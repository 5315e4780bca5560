// Package repository implements the booking ports over MySQL.  Every
// repository runs its statements through a querier so the same code serves
// plain connections and transactions.
//
// Sentinel values let higher layers distinguish failure scenarios.
// ErrNotFound wraps booking.ErrNoRecord so that the engine maps it to a
// NotFound error without knowing about SQL.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = fmt.Errorf("repository: %w", booking.ErrNoRecord)

// ErrConflict is returned when an insert violates a unique key, such as a
// second seat with the same number on one bus.
var ErrConflict = errors.New("conflict")

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// translate maps driver errors onto the package sentinels.  what and id
// describe the row for the error message.
func translate(err error, what string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%s %v: %w", what, id, ErrConflict)
	}
	return err
}

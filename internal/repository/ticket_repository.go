package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

const ticketColumns = `id, purchase_id, trip_id, seat_number, holder_id, from_stop_id, to_stop_id, from_order, to_order, status, price, created_at, updated_at`

func scanTickets(rows *sql.Rows) ([]model.Ticket, error) {
	defer rows.Close()
	tickets := make([]model.Ticket, 0)
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.PurchaseID, &t.TripID, &t.SeatNumber, &t.HolderID, &t.FromStopID, &t.ToStopID,
			&t.FromOrder, &t.ToOrder, &t.Status, &t.Price, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// CreateTickets inserts the tickets in a single statement and assigns their
// ids.  MySQL hands out consecutive auto-increment values for a multi-row
// insert, starting at LastInsertId.  Passing an empty slice has no effect.
func (r *Inventory) CreateTickets(ctx context.Context, tickets []*model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO tickets (purchase_id, trip_id, seat_number, holder_id, from_stop_id, to_stop_id, from_order, to_order, status, price, created_at, updated_at) VALUES `)
	args := make([]any, 0, len(tickets)*12)
	for i, t := range tickets {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, t.PurchaseID, t.TripID, t.SeatNumber, t.HolderID, t.FromStopID, t.ToStopID,
			t.FromOrder, t.ToOrder, t.Status, t.Price, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	}
	res, err := r.q.ExecContext(ctx, b.String(), args...)
	if err != nil {
		return translate(err, "tickets for purchase", tickets[0].PurchaseID)
	}
	first, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for i, t := range tickets {
		t.ID = uint64(first) + uint64(i)
	}
	return nil
}

// ListTicketsByPurchase returns the tickets of a purchase ordered by id.
func (r *Inventory) ListTicketsByPurchase(ctx context.Context, purchaseID uint64) ([]model.Ticket, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE purchase_id = ? ORDER BY id`, purchaseID)
	if err != nil {
		return nil, err
	}
	return scanTickets(rows)
}

// UpdateTicketStatus moves a ticket between statuses, conditional on the
// current one.
func (r *Inventory) UpdateTicketStatus(ctx context.Context, ticketID uint64, from, to model.TicketStatus) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE tickets SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
		to, ticketID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// FindOverlappingSold returns the SOLD tickets on a seat whose segment
// overlaps seg.
func (r *Inventory) FindOverlappingSold(ctx context.Context, tripID uint64, seat string, seg model.Segment) ([]model.Ticket, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets
         WHERE trip_id = ? AND seat_number = ? AND status = ? AND from_order < ? AND to_order > ?
         ORDER BY id`,
		tripID, seat, model.TicketSold, seg.To, seg.From)
	if err != nil {
		return nil, err
	}
	return scanTickets(rows)
}

// CountSold returns the number of SOLD tickets of a trip.
func (r *Inventory) CountSold(ctx context.Context, tripID uint64) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE trip_id = ? AND status = ?`,
		tripID, model.TicketSold).Scan(&n)
	return n, err
}

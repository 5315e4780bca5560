package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// RouteRepo provides read access to routes and their stops.  It implements
// booking.RouteTopologyProvider.
type RouteRepo struct {
	db *sql.DB
}

var _ booking.RouteTopologyProvider = (*RouteRepo)(nil)

// NewRouteRepo returns a new RouteRepo bound to the provided database.
func NewRouteRepo(db *sql.DB) *RouteRepo { return &RouteRepo{db: db} }

// GetRoute loads a route by id.
func (r *RouteRepo) GetRoute(ctx context.Context, routeID uint64) (*model.Route, error) {
	var rt model.Route
	if err := r.db.QueryRowContext(ctx, `SELECT id, name FROM routes WHERE id = ?`, routeID).Scan(&rt.ID, &rt.Name); err != nil {
		return nil, translate(err, "route", routeID)
	}
	return &rt, nil
}

// GetStop loads a stop by id.
func (r *RouteRepo) GetStop(ctx context.Context, stopID uint64) (*model.Stop, error) {
	var s model.Stop
	err := r.db.QueryRowContext(ctx, `SELECT id, route_id, name, stop_order FROM stops WHERE id = ?`, stopID).
		Scan(&s.ID, &s.RouteID, &s.Name, &s.Order)
	if err != nil {
		return nil, translate(err, "stop", stopID)
	}
	return &s, nil
}

// ListStops returns the stops of a route in travel order.
func (r *RouteRepo) ListStops(ctx context.Context, routeID uint64) ([]model.Stop, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, route_id, name, stop_order FROM stops WHERE route_id = ? ORDER BY stop_order`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stops := make([]model.Stop, 0)
	for rows.Next() {
		var s model.Stop
		if err := rows.Scan(&s.ID, &s.RouteID, &s.Name, &s.Order); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stops, nil
}

package booking

import (
	"context"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// RouteTopology turns stop ids into validated segments of a trip's route.
type RouteTopology struct {
	provider RouteTopologyProvider
}

// NewRouteTopology wraps a topology provider.
func NewRouteTopology(p RouteTopologyProvider) *RouteTopology {
	if p == nil {
		panic("nil provider passed to NewRouteTopology")
	}
	return &RouteTopology{provider: p}
}

// ResolveSegment returns the segment between two stops of trip's route.  It
// fails with NotFound when a stop does not exist and with InvalidArgument
// when a stop belongs to another route or the stops are not in travel order.
func (t *RouteTopology) ResolveSegment(ctx context.Context, trip *model.Trip, fromStopID, toStopID uint64) (model.Segment, error) {
	from, err := t.provider.GetStop(ctx, fromStopID)
	if err != nil {
		return model.Segment{}, lookupErr(err, "stop", fromStopID)
	}
	to, err := t.provider.GetStop(ctx, toStopID)
	if err != nil {
		return model.Segment{}, lookupErr(err, "stop", toStopID)
	}
	for _, s := range []*model.Stop{from, to} {
		if s.RouteID != trip.RouteID {
			return model.Segment{}, invalidArgument("stop %d is not on route %d of trip %d", s.ID, trip.RouteID, trip.ID)
		}
	}
	seg, err := model.NewSegment(from.Order, to.Order)
	if err != nil {
		return model.Segment{}, &Error{Kind: KindInvalidArgument, Message: "origin must come before destination", Err: err}
	}
	return seg, nil
}

// RouteLegs returns the number of legs between the first and last stop of
// a route.
func (t *RouteTopology) RouteLegs(ctx context.Context, routeID uint64) (int, error) {
	stops, err := t.provider.ListStops(ctx, routeID)
	if err != nil {
		return 0, lookupErr(err, "route", routeID)
	}
	if len(stops) < 2 {
		return 0, invalidState("route %d has fewer than two stops", routeID)
	}
	return stops[len(stops)-1].Order - stops[0].Order, nil
}

// Stops lists the stops of a route in travel order.
func (t *RouteTopology) Stops(ctx context.Context, routeID uint64) ([]model.Stop, error) {
	if _, err := t.provider.GetRoute(ctx, routeID); err != nil {
		return nil, lookupErr(err, "route", routeID)
	}
	stops, err := t.provider.ListStops(ctx, routeID)
	if err != nil {
		return nil, lookupErr(err, "route", routeID)
	}
	return stops, nil
}

package model

// Route is an ordered sequence of stops served by trips.
//
// Fields:
//  ID   – primary key identifier.
//  Name – human readable route name (e.g. "Tehran – Rasht").
type Route struct {
	ID   uint64 // routes.id
	Name string // routes.name
}

// Stop is a single boarding or alighting point on a route.  Order is the
// zero-based position of the stop along the route and is unique per route.
// Segments are expressed in stop orders, never in stop ids.
//
// Fields:
//  ID      – primary key identifier.
//  RouteID – route this stop belongs to.
//  Name    – display name of the stop.
//  Order   – position along the route (0 is the origin).
type Stop struct {
	ID      uint64 // stops.id
	RouteID uint64 // stops.route_id
	Name    string // stops.name
	Order   int    // stops.stop_order
}

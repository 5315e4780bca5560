// Package router registers the HTTP API on an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
)

// Deps are the handlers and middleware settings the API is built from.
// Redis may be nil, which disables rate limiting and response caching.
type Deps struct {
	Booking    *handler.BookingHandler
	Trips      *handler.TripHandler
	Topology   *handler.TopologyHandler
	Metrics    echo.HandlerFunc
	DB         handler.Pinger
	JWTSecret  string
	Redis      *redis.Client
	ReadLimit  config.RateLimitConfig
	WriteLimit config.RateLimitConfig
	Cache      config.CacheConfig
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(d.DB))
	if d.Metrics != nil {
		e.GET("/metrics", d.Metrics)
	}
}

// RegisterPublic registers the route topology lookups.  No token is needed.
func RegisterPublic(e *echo.Echo, d Deps) {
	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	read := middleware.NewTokenBucket(d.ReadLimit, d.Redis)
	e.GET("/v1/routes/:id/stops", d.Topology.Stops, read, cache)
}

// RegisterBooking registers the customer booking endpoints.  Lookups share
// the read bucket; holds and purchases draw from the per-holder write bucket.
func RegisterBooking(e *echo.Echo, d Deps) {
	g := e.Group("/v1", middleware.JWTAuth(d.JWTSecret))
	read := middleware.NewTokenBucket(d.ReadLimit, d.Redis)
	write := middleware.NewTokenBucket(d.WriteLimit, d.Redis)
	b := d.Booking

	g.GET("/trips/:id/seats/:seat/availability", b.Availability, read)
	g.GET("/trips/:id/capacity", b.Capacity, read)
	g.GET("/trips/:id/holds", b.ListHolds, read)
	g.POST("/trips/:id/holds", b.CreateHold, write)
	g.DELETE("/holds/:id", b.ReleaseHold, write)
	g.POST("/trips/:id/purchases", b.StartPurchase, write)
	g.GET("/purchases/:id", b.GetPurchase, read)
	g.POST("/purchases/:id/confirm", b.ConfirmPurchase, write)
	g.DELETE("/purchases/:id", b.CancelPurchase, write)

	operator := middleware.RequireRole(middleware.RoleOperator)
	g.POST("/trips", d.Trips.CreateTrip, operator)
	g.PATCH("/trips/:id/status", d.Trips.UpdateStatus, operator)
	g.PATCH("/trips/:id/overbooking", d.Trips.UpdateOverbooking, operator)
}

// New builds an echo instance with every route group registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	RegisterRoutes(e, d)
	RegisterPublic(e, d)
	RegisterBooking(e, d)
	return e
}

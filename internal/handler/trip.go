package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// TripHandler lets operators schedule trips and drive their lifecycle.
// Routes are guarded by RequireRole(OPERATOR).
type TripHandler struct {
	capacity *booking.CapacityModel
}

func NewTripHandler(capacity *booking.CapacityModel) *TripHandler {
	if capacity == nil {
		panic("nil capacity model passed to NewTripHandler")
	}
	return &TripHandler{capacity: capacity}
}

// CreateTrip handles POST /v1/trips.
func (h *TripHandler) CreateTrip(c echo.Context) error {
	var body struct {
		BusID              uint64    `json:"bus_id"`
		RouteID            uint64    `json:"route_id"`
		DepartsAt          time.Time `json:"departs_at"`
		ArrivesAt          time.Time `json:"arrives_at"`
		OverbookingPercent int       `json:"overbooking_percent"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.BusID == 0 || body.RouteID == 0 {
		return badRequest(c, "bus_id and route_id are required")
	}
	trip, err := h.capacity.CreateTrip(c.Request().Context(), booking.TripRequest{
		BusID:              body.BusID,
		RouteID:            body.RouteID,
		DepartsAt:          body.DepartsAt,
		ArrivesAt:          body.ArrivesAt,
		OverbookingPercent: body.OverbookingPercent,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toTrip(trip))
}

// UpdateStatus handles PATCH /v1/trips/:id/status.
func (h *TripHandler) UpdateStatus(c echo.Context) error {
	tripID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid trip id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	trip, err := h.capacity.Transition(c.Request().Context(), tripID, model.TripStatus(body.Status))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toTrip(trip))
}

// UpdateOverbooking handles PATCH /v1/trips/:id/overbooking.
func (h *TripHandler) UpdateOverbooking(c echo.Context) error {
	tripID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid trip id")
	}
	var body struct {
		OverbookingPercent *int `json:"overbooking_percent"`
	}
	if err := c.Bind(&body); err != nil || body.OverbookingPercent == nil {
		return badRequest(c, "overbooking_percent is required")
	}
	trip, err := h.capacity.SetOverbooking(c.Request().Context(), tripID, *body.OverbookingPercent)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toTrip(trip))
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
)

// TopologyHandler serves route stop lists.  They change rarely and the
// route is registered behind the Redis response cache.
type TopologyHandler struct {
	topology *booking.RouteTopology
}

func NewTopologyHandler(topology *booking.RouteTopology) *TopologyHandler {
	if topology == nil {
		panic("nil topology passed to NewTopologyHandler")
	}
	return &TopologyHandler{topology: topology}
}

// Stops handles GET /v1/routes/:id/stops.
func (h *TopologyHandler) Stops(c echo.Context) error {
	routeID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid route id")
	}
	stops, err := h.topology.Stops(c.Request().Context(), routeID)
	if err != nil {
		return fail(c, err)
	}
	out := make([]stopResponse, 0, len(stops))
	for _, s := range stops {
		out = append(out, stopResponse{ID: s.ID, Name: s.Name, Order: s.Order})
	}
	return c.JSON(http.StatusOK, echo.Map{"route_id": routeID, "stops": out})
}

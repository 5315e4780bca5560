package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
)

// BookingHandler exposes seat availability, holds and purchases to
// customers.  Every method expects JWTAuth to have run.
type BookingHandler struct {
	engine *booking.Engine
}

// NewBookingHandler panics if engine is nil.
func NewBookingHandler(engine *booking.Engine) *BookingHandler {
	if engine == nil {
		panic("nil engine passed to NewBookingHandler")
	}
	return &BookingHandler{engine: engine}
}

// Availability handles GET /v1/trips/:id/seats/:seat/availability?from=&to=.
func (h *BookingHandler) Availability(c echo.Context) error {
	tripID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid trip id")
	}
	from, errFrom := strconv.ParseUint(c.QueryParam("from"), 10, 64)
	to, errTo := strconv.ParseUint(c.QueryParam("to"), 10, 64)
	if errFrom != nil || errTo != nil {
		return badRequest(c, "from and to stop ids are required")
	}
	seat := c.Param("seat")
	free, err := h.engine.Coordinator.IsSeatAvailable(c.Request().Context(), tripID, seat, from, to)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"trip_id":      tripID,
		"seat_number":  seat,
		"from_stop_id": from,
		"to_stop_id":   to,
		"available":    free,
	})
}

// Capacity handles GET /v1/trips/:id/capacity.
func (h *BookingHandler) Capacity(c echo.Context) error {
	tripID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid trip id")
	}
	capacity, err := h.engine.Capacity.Capacity(c.Request().Context(), tripID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, capacity)
}

// CreateHold handles POST /v1/trips/:id/holds.
func (h *BookingHandler) CreateHold(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	tripID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid trip id")
	}
	var body struct {
		SeatNumber string `json:"seat_number"`
		FromStopID uint64 `json:"from_stop_id"`
		ToStopID   uint64 `json:"to_stop_id"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	hold, err := h.engine.Coordinator.CreateHold(c.Request().Context(), booking.HoldRequest{
		TripID:     tripID,
		SeatNumber: body.SeatNumber,
		HolderID:   userID,
		FromStopID: body.FromStopID,
		ToStopID:   body.ToStopID,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toHold(*hold))
}

// ListHolds handles GET /v1/trips/:id/holds, returning the caller's active
// holds on the trip.
func (h *BookingHandler) ListHolds(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	tripID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid trip id")
	}
	holds, err := h.engine.Coordinator.ActiveHolds(c.Request().Context(), tripID, userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"holds": toHolds(holds)})
}

// ReleaseHold handles DELETE /v1/holds/:id.
func (h *BookingHandler) ReleaseHold(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	holdID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid hold id")
	}
	hold, err := h.engine.Coordinator.ReleaseHold(c.Request().Context(), holdID, userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toHold(*hold))
}

// StartPurchase handles POST /v1/trips/:id/purchases.  The body lists the
// seats the caller holds and wants to buy.
func (h *BookingHandler) StartPurchase(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	tripID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid trip id")
	}
	var body struct {
		SeatNumbers []string `json:"seat_numbers"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.engine.Coordinator.StartPurchase(c.Request().Context(), tripID, userID, body.SeatNumbers)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toPurchase(res))
}

// GetPurchase handles GET /v1/purchases/:id.
func (h *BookingHandler) GetPurchase(c echo.Context) error {
	res, err := h.ownedPurchase(c)
	if err != nil || res == nil {
		return err
	}
	return c.JSON(http.StatusOK, toPurchase(res))
}

// ConfirmPurchase handles POST /v1/purchases/:id/confirm.
func (h *BookingHandler) ConfirmPurchase(c echo.Context) error {
	res, err := h.ownedPurchase(c)
	if err != nil || res == nil {
		return err
	}
	res, err = h.engine.Coordinator.ConfirmPurchase(c.Request().Context(), res.Purchase.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toPurchase(res))
}

// CancelPurchase handles DELETE /v1/purchases/:id.
func (h *BookingHandler) CancelPurchase(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	purchaseID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid purchase id")
	}
	res, err := h.engine.Coordinator.CancelPurchase(c.Request().Context(), purchaseID, userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toPurchase(res))
}

// ownedPurchase loads the purchase named by the path and checks that it
// belongs to the caller.  A nil result with a nil error means the response
// has already been written.
func (h *BookingHandler) ownedPurchase(c echo.Context) (*booking.PurchaseResult, error) {
	userID, err := getUserID(c)
	if err != nil {
		return nil, unauthorized(c)
	}
	purchaseID, ok := pathID(c, "id")
	if !ok {
		return nil, badRequest(c, "invalid purchase id")
	}
	res, err := h.engine.Coordinator.GetPurchase(c.Request().Context(), purchaseID)
	if err != nil {
		return nil, fail(c, err)
	}
	if res.Purchase.HolderID != userID {
		// not revealing other holders' purchases
		return nil, c.JSON(http.StatusNotFound, errorResponse{Error: booking.KindNotFound.String(), Message: "purchase not found"})
	}
	return res, nil
}

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
)

// errorResponse is the body of every non-2xx answer produced by a booking
// failure.
type errorResponse struct {
	Error    string                `json:"error"`
	Message  string                `json:"message"`
	Failures []booking.SeatFailure `json:"failures,omitempty"`
}

func statusFor(kind booking.Kind) int {
	switch kind {
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindConflict:
		return http.StatusConflict
	case booking.KindInvalidArgument:
		return http.StatusBadRequest
	case booking.KindInvalidState:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// fail writes err as JSON with the status of its kind.  Internal errors are
// logged and answered without detail.
func fail(c echo.Context, err error) error {
	kind := booking.KindOf(err)
	if kind == booking.KindInternal {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: kind.String(), Message: "internal error"})
	}
	return c.JSON(statusFor(kind), errorResponse{
		Error:    kind.String(),
		Message:  err.Error(),
		Failures: booking.FailuresOf(err),
	})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: booking.KindInvalidArgument.String(), Message: msg})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

var errNoHolder = errors.New("no authenticated holder")

// getUserID returns the holder id placed in the context by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := middleware.HolderID(c); ok {
		return id, nil
	}
	return 0, errNoHolder
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

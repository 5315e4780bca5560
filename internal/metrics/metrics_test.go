package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.HoldCreated()
	c.HoldCreated()
	c.HoldRejected("conflict")
	c.HoldsSwept(3)
	c.HoldsSwept(0)
	c.HoldsPurged(2)
	c.PurchaseConfirmed(4)
	c.PurchaseRejected("invalid_state")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.holdsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.holdsRejected.WithLabelValues("conflict")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.holdsSwept))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.holdsPurged))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.purchasesConfirmed))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.ticketsSold))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.purchasesRejected.WithLabelValues("invalid_state")))
}

func TestHandlerExposesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	c.HoldCreated()

	e := echo.New()
	e.GET("/metrics", Handler(reg))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "booking_holds_created_total 1")
}

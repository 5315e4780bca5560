// Package metrics exposes Prometheus counters for the booking engine.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
)

// Collector implements booking.Metrics.
type Collector struct {
	holdsCreated       prometheus.Counter
	holdsRejected      *prometheus.CounterVec
	holdsSwept         prometheus.Counter
	holdsPurged        prometheus.Counter
	purchasesConfirmed prometheus.Counter
	ticketsSold        prometheus.Counter
	purchasesRejected  *prometheus.CounterVec
}

var _ booking.Metrics = (*Collector)(nil)

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		holdsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "booking_holds_created_total",
			Help: "Holds placed on a seat segment",
		}),
		holdsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_holds_rejected_total",
			Help: "Hold requests rejected, by reason",
		}, []string{"reason"}),
		holdsSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "booking_holds_swept_total",
			Help: "Holds moved to EXPIRED by the sweep",
		}),
		holdsPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "booking_holds_purged_total",
			Help: "Expired holds permanently deleted",
		}),
		purchasesConfirmed: f.NewCounter(prometheus.CounterOpts{
			Name: "booking_purchases_confirmed_total",
			Help: "Purchases whose tickets were promoted to SOLD",
		}),
		ticketsSold: f.NewCounter(prometheus.CounterOpts{
			Name: "booking_tickets_sold_total",
			Help: "Tickets promoted to SOLD",
		}),
		purchasesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_purchases_rejected_total",
			Help: "Purchase confirmations rejected, by reason",
		}, []string{"reason"}),
	}
}

func (c *Collector) HoldCreated()               { c.holdsCreated.Inc() }
func (c *Collector) HoldRejected(reason string) { c.holdsRejected.WithLabelValues(reason).Inc() }
func (c *Collector) HoldsSwept(n int64)         { c.holdsSwept.Add(float64(n)) }
func (c *Collector) HoldsPurged(n int64)        { c.holdsPurged.Add(float64(n)) }

func (c *Collector) PurchaseConfirmed(tickets int) {
	c.purchasesConfirmed.Inc()
	c.ticketsSold.Add(float64(tickets))
}

func (c *Collector) PurchaseRejected(reason string) {
	c.purchasesRejected.WithLabelValues(reason).Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// Package metrics exposes Prometheus counters for the booking core and the
// HTTP layer.  A nil *Metrics is valid and records nothing, so components
// can be built without a registry in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lodge"

// Metrics groups every collector the service exports.
type Metrics struct {
	Bookings         *prometheus.CounterVec
	BookingConflicts prometheus.Counter
	Holds            *prometheus.CounterVec
	HoldsPurged      prometheus.Counter
	PriceDiscrepancy prometheus.Counter
	RequestDuration  *prometheus.HistogramVec
	registry         prometheus.Gatherer
}

// New registers the collectors on reg.  Passing nil uses a fresh registry,
// which keeps repeated construction in tests from panicking on duplicate
// registration.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		Bookings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Count of booking lifecycle operations by action.",
		}, []string{"action"}),
		BookingConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Count of bookings rejected because a room was unavailable.",
		}),
		Holds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "holds_total",
			Help:      "Count of hold requests by result.",
		}, []string{"result"}),
		HoldsPurged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "holds_purged_total",
			Help:      "Count of expired holds removed by the purger.",
		}),
		PriceDiscrepancy: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_discrepancies_total",
			Help:      "Count of locked bookings whose recomputed price differs from the stored total.",
		}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		registry: reg,
	}
}

// Gatherer returns the registry the collectors live in.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

func (m *Metrics) BookingAction(action string) {
	if m == nil {
		return
	}
	m.Bookings.WithLabelValues(action).Inc()
}

func (m *Metrics) BookingConflict() {
	if m == nil {
		return
	}
	m.BookingConflicts.Inc()
}

func (m *Metrics) HoldResult(result string) {
	if m == nil {
		return
	}
	m.Holds.WithLabelValues(result).Inc()
}

func (m *Metrics) Purged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.HoldsPurged.Add(float64(n))
}

func (m *Metrics) PriceMismatch() {
	if m == nil {
		return
	}
	m.PriceDiscrepancy.Inc()
}

func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

package planner

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the planner's Prometheus collectors.
type Metrics struct {
	plans        *prometheus.CounterVec
	fits         *prometheus.CounterVec
	fitSeconds   prometheus.Histogram
	flightQuotes *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "itinera_plans_total",
			Help: "Plans generated, by luxury tier.",
		}, []string{"tier"}),
		fits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "itinera_budget_fit_total",
			Help: "Budget fits, by strategy and whether the total met the target.",
		}, []string{"strategy", "within_target"}),
		fitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "itinera_budget_fit_seconds",
			Help:    "Time spent fitting a plan to its budget.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		flightQuotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "itinera_flight_quotes_total",
			Help: "Flight prices used for planning, by source.",
		}, []string{"source"}),
	}
	if reg != nil {
		reg.MustRegister(m.plans, m.fits, m.fitSeconds, m.flightQuotes)
	}
	return m
}

func (m *Metrics) plan(tier string) {
	if m == nil {
		return
	}
	m.plans.WithLabelValues(tier).Inc()
}

func (m *Metrics) fit(strategy string, within bool, took time.Duration) {
	if m == nil {
		return
	}
	m.fits.WithLabelValues(strategy, strconv.FormatBool(within)).Inc()
	m.fitSeconds.Observe(took.Seconds())
}

func (m *Metrics) flightQuote(source string) {
	if m == nil {
		return
	}
	m.flightQuotes.WithLabelValues(source).Inc()
}

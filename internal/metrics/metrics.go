// Package metrics exposes Prometheus counters for exchange activity.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the counters shared by exchanges and the venue client.
type Metrics struct {
	orders        *prometheus.CounterVec
	retries       *prometheus.CounterVec
	venueRequests *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which tests use.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_orders_total",
			Help: "Orders placed, by exchange, side and resulting status.",
		}, []string{"exchange", "side", "status"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_retries_total",
			Help: "Retried venue operations.",
		}, []string{"operation"}),
		venueRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "venue_requests_total",
			Help: "HTTP requests sent to the venue, by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.orders, m.retries, m.venueRequests} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// OrderPlaced counts one order result. Rejections use status "rejected".
func (m *Metrics) OrderPlaced(exchange, side, status string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(exchange, side, status).Inc()
}

// Retry counts one retry of operation.
func (m *Metrics) Retry(operation string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(operation).Inc()
}

// VenueRequest counts one venue call. outcome is "ok", "error",
// "rate_limited" or "breaker_open".
func (m *Metrics) VenueRequest(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.venueRequests.WithLabelValues(endpoint, outcome).Inc()
}

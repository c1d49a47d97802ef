package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the storefront's Prometheus collectors.
// A nil *Metrics is valid and records nothing, which keeps tests free of registries.
type Metrics struct {
	HTTPDuration       *prometheus.HistogramVec
	CartItemsAdded     prometheus.Counter
	Checkouts          *prometheus.CounterVec
	PaymentSessions    *prometheus.CounterVec
	PaymentCompletions *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		CartItemsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_items_added_total",
			Help: "Total number of successful add-to-cart calls.",
		}),
		Checkouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkouts_total",
				Help: "Checkout form submissions by outcome.",
			},
			[]string{"outcome"},
		),
		PaymentSessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_sessions_total",
				Help: "Gateway session creations by outcome.",
			},
			[]string{"outcome"},
		),
		PaymentCompletions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_completions_total",
				Help: "Payment completion attempts by outcome.",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.HTTPDuration, m.CartItemsAdded, m.Checkouts, m.PaymentSessions, m.PaymentCompletions)
	return m
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(method, route, status).Observe(seconds)
}

func (m *Metrics) CartItemAdded() {
	if m == nil {
		return
	}
	m.CartItemsAdded.Inc()
}

func (m *Metrics) Checkout(outcome string) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PaymentSession(outcome string) {
	if m == nil {
		return
	}
	m.PaymentSessions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PaymentCompletion(outcome string) {
	if m == nil {
		return
	}
	m.PaymentCompletions.WithLabelValues(outcome).Inc()
}

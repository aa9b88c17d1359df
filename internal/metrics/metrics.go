// Package metrics holds the Prometheus collectors of the check engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tabgo"

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	mutations   *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_mutations_total",
			Help:      "Committed check mutations by operation.",
		}, []string{"op"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_conflicts_total",
			Help:      "Rejected check mutations by operation and reason.",
		}, []string{"op", "reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_transitions_total",
			Help:      "Table status changes by target status.",
		}, []string{"status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}

	reg.MustRegister(m.mutations, m.conflicts, m.transitions, m.httpLatency)

	return m
}

func (m *Metrics) Mutation(op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op).Inc()
}

func (m *Metrics) Conflict(op, reason string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(op, reason).Inc()
}

func (m *Metrics) TableTransition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveHTTP(method, route, code string, seconds float64) {
	if m == nil {
		return
	}
	m.httpLatency.WithLabelValues(method, route, code).Observe(seconds)
}

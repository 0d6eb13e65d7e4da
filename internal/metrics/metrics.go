package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry           *prometheus.Registry
	rateLimitDecisions *prometheus.CounterVec
	actions            *prometheus.CounterVec
	actionDuration     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rateLimitDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "league",
			Name:      "ratelimit_decisions_total",
			Help:      "Rate limit decisions by operation class and outcome.",
		}, []string{"class", "outcome"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "league",
			Name:      "actions_total",
			Help:      "Action handler invocations by operation and outcome code.",
		}, []string{"operation", "outcome"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "league",
			Name:      "action_duration_seconds",
			Help:      "Action handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rateLimitDecisions,
		m.actions,
		m.actionDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRateLimit(class, outcome string) {
	if m == nil {
		return
	}
	m.rateLimitDecisions.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) ObserveAction(operation, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(operation, outcome).Inc()
	m.actionDuration.WithLabelValues(operation).Observe(took.Seconds())
}

// RateLimitCount exposes a decision counter for tests and diagnostics.
func (m *Metrics) RateLimitCount(class, outcome string) prometheus.Counter {
	return m.rateLimitDecisions.WithLabelValues(class, outcome)
}

// ActionCount exposes an action counter for tests and diagnostics.
func (m *Metrics) ActionCount(operation, outcome string) prometheus.Counter {
	return m.actions.WithLabelValues(operation, outcome)
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// Capability metrics
	CapabilityExecutionsTotal   *prometheus.CounterVec
	CapabilityExecutionDuration *prometheus.HistogramVec
	CapabilityErrorsTotal       *prometheus.CounterVec
	ValidationFailuresTotal     *prometheus.CounterVec
	RateLimitDeniedTotal        *prometheus.CounterVec

	// Transport metrics
	HTTPRequestsTotal       *prometheus.CounterVec
	EventClientsConnected   prometheus.Gauge
	EventsBroadcastTotal    prometheus.Counter
	ScheduledRunsTotal      *prometheus.CounterVec
	ScheduledRunErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		CapabilityExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capability_executions_total",
				Help: "Total number of capability executions",
			},
			[]string{"capability", "origin", "status"},
		),
		CapabilityExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "capability_execution_duration_seconds",
				Help:    "Duration of capability executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"capability"},
		),
		CapabilityErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capability_errors_total",
				Help: "Total number of capability execution errors",
			},
			[]string{"capability", "error_type"},
		),
		ValidationFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capability_validation_failures_total",
				Help: "Total number of input validation failures",
			},
			[]string{"capability"},
		),
		RateLimitDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capability_rate_limit_denied_total",
				Help: "Total number of executions denied by rate limiting",
			},
			[]string{"capability"},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transport_http_requests_total",
				Help: "Total number of transport HTTP requests",
			},
			[]string{"path", "status"},
		),
		EventClientsConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "transport_event_clients_connected",
				Help: "Number of currently connected event stream clients",
			},
		),
		EventsBroadcastTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "transport_events_broadcast_total",
				Help: "Total number of execution events broadcast",
			},
		),
		ScheduledRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduler_runs_total",
				Help: "Total number of scheduled capability runs",
			},
			[]string{"capability", "status"},
		),
		ScheduledRunErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduler_run_errors_total",
				Help: "Total number of scheduled run errors",
			},
			[]string{"capability"},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.CapabilityExecutionsTotal)
	m.registry.MustRegister(m.CapabilityExecutionDuration)
	m.registry.MustRegister(m.CapabilityErrorsTotal)
	m.registry.MustRegister(m.ValidationFailuresTotal)
	m.registry.MustRegister(m.RateLimitDeniedTotal)
	m.registry.MustRegister(m.HTTPRequestsTotal)
	m.registry.MustRegister(m.EventClientsConnected)
	m.registry.MustRegister(m.EventsBroadcastTotal)
	m.registry.MustRegister(m.ScheduledRunsTotal)
	m.registry.MustRegister(m.ScheduledRunErrorsTotal)
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

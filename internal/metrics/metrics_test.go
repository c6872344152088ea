package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	if m.registry == nil {
		t.Error("Registry is nil")
	}

	if m.CapabilityExecutionsTotal == nil {
		t.Error("CapabilityExecutionsTotal is nil")
	}
	if m.CapabilityExecutionDuration == nil {
		t.Error("CapabilityExecutionDuration is nil")
	}
	if m.CapabilityErrorsTotal == nil {
		t.Error("CapabilityErrorsTotal is nil")
	}
	if m.ValidationFailuresTotal == nil {
		t.Error("ValidationFailuresTotal is nil")
	}
	if m.RateLimitDeniedTotal == nil {
		t.Error("RateLimitDeniedTotal is nil")
	}
	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if m.EventClientsConnected == nil {
		t.Error("EventClientsConnected is nil")
	}
	if m.ScheduledRunsTotal == nil {
		t.Error("ScheduledRunsTotal is nil")
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()

	// Record some sample metrics so they appear in output
	m.CapabilityExecutionsTotal.WithLabelValues("echo", "trusted", "success").Inc()
	m.CapabilityExecutionDuration.WithLabelValues("echo").Observe(0.5)
	m.CapabilityErrorsTotal.WithLabelValues("echo", "handler").Inc()
	m.ValidationFailuresTotal.WithLabelValues("echo").Inc()
	m.HTTPRequestsTotal.WithLabelValues("/v1/capabilities", "200").Inc()

	handler := m.Handler()
	if handler == nil {
		t.Fatal("Handler returned nil")
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()

	expectedMetrics := []string{
		"capability_executions_total",
		"capability_execution_duration_seconds",
		"capability_errors_total",
		"capability_validation_failures_total",
		"transport_http_requests_total",
		"transport_event_clients_connected",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("Metrics output missing: %s", metric)
		}
	}
}

func TestMetricsIsolation(t *testing.T) {
	m1 := NewMetrics()
	m2 := NewMetrics()

	m1.EventsBroadcastTotal.Inc()
	m1.EventsBroadcastTotal.Inc()
	m2.EventsBroadcastTotal.Inc()

	check := func(m *Metrics, want float64) {
		metricFamilies, err := m.registry.Gather()
		if err != nil {
			t.Fatalf("Failed to gather metrics: %v", err)
		}
		for _, mf := range metricFamilies {
			if *mf.Name == "transport_events_broadcast_total" {
				if got := *mf.Metric[0].Counter.Value; got != want {
					t.Errorf("Expected value %f, got %f", want, got)
				}
			}
		}
	}

	check(m1, 2)
	check(m2, 1)
}

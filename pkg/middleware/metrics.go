package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/lantos1618/better-ui-sub002/internal/metrics"
	"github.com/lantos1618/better-ui-sub002/pkg/capability"
)

// Metrics returns a stage that records execution counts, durations and
// error types for the named capability.
func Metrics(m *metrics.Metrics, name string) capability.Middleware {
	return func(ctx context.Context, input interface{}, inv *capability.Invocation, next capability.Next) (interface{}, error) {
		start := time.Now()

		result, err := next()
		duration := time.Since(start)

		origin := "trusted"
		if !inv.TrustedOrigin {
			origin = "untrusted"
		}

		m.CapabilityExecutionDuration.WithLabelValues(name).Observe(duration.Seconds())

		if err != nil {
			m.CapabilityExecutionsTotal.WithLabelValues(name, origin, "failure").Inc()
			m.CapabilityErrorsTotal.WithLabelValues(name, errorType(err)).Inc()
			return nil, err
		}

		m.CapabilityExecutionsTotal.WithLabelValues(name, origin, "success").Inc()
		return result, nil
	}
}

func errorType(err error) string {
	var mErr *capability.MissingHandlerError
	if errors.As(err, &mErr) {
		return "missing_handler"
	}
	var vErr *capability.ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "handler"
}

package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lantos1618/better-ui-sub002/internal/observability"
	"github.com/lantos1618/better-ui-sub002/pkg/capability"
)

// Audit returns a stage that records every execution of the named
// capability to the given recorder. Recording failures never affect the
// execution result.
func Audit(recorder observability.Recorder, name string) capability.Middleware {
	return func(ctx context.Context, input interface{}, inv *capability.Invocation, next capability.Next) (interface{}, error) {
		start := time.Now()

		result, err := next()

		event := observability.Event{
			ID:         uuid.NewString(),
			Capability: name,
			Actor:      inv.Identity,
			Session:    inv.Session,
			Trusted:    inv.TrustedOrigin,
			Status:     observability.StatusSuccess,
			Duration:   time.Since(start),
			Timestamp:  start,
		}
		if err != nil {
			event.Status = observability.StatusFailure
			event.Error = err.Error()
		}

		_ = recorder.Record(ctx, event)

		return result, err
	}
}

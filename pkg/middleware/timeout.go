package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/lantos1618/better-ui-sub002/pkg/capability"
)

// Timeout returns a stage that races the rest of the chain against a
// deadline. The engine imposes no default timeout; attach this stage where
// one is wanted. The inner chain only observes the caller's context, so it
// keeps running in the background after a timeout fires.
func Timeout(limit time.Duration) capability.Middleware {
	return func(ctx context.Context, input interface{}, inv *capability.Invocation, next capability.Next) (interface{}, error) {
		timeoutCtx, cancel := context.WithTimeout(ctx, limit)
		defer cancel()

		type outcome struct {
			result interface{}
			err    error
		}
		done := make(chan outcome, 1)

		go func() {
			result, err := next()
			done <- outcome{result: result, err: err}
		}()

		select {
		case out := <-done:
			return out.result, out.err
		case <-timeoutCtx.Done():
			if timeoutCtx.Err() == context.DeadlineExceeded {
				return nil, fmt.Errorf("execution timeout after %v: %w", limit, context.DeadlineExceeded)
			}
			return nil, timeoutCtx.Err()
		}
	}
}

package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/lantos1618/better-ui-sub002/pkg/capability"
)

// RetryOptions configures the Retry stage.
type RetryOptions struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Delay is the wait between tries. Zero retries immediately.
	Delay time.Duration
	// RetryIf decides whether a failure is retryable. Nil retries every
	// failure except validation and missing-handler errors.
	RetryIf func(error) bool
}

// Retry returns a stage that re-invokes the rest of the chain on failure,
// up to a bounded number of attempts. The engine itself never retries;
// this stage is the explicit opt-in.
func Retry(opts RetryOptions) capability.Middleware {
	if opts.Attempts < 1 {
		opts.Attempts = 3
	}
	retryIf := opts.RetryIf
	if retryIf == nil {
		retryIf = defaultRetryable
	}

	return func(ctx context.Context, input interface{}, inv *capability.Invocation, next capability.Next) (interface{}, error) {
		var lastErr error

		for attempt := 1; attempt <= opts.Attempts; attempt++ {
			result, err := next()
			if err == nil {
				return result, nil
			}
			lastErr = err

			if !retryIf(err) {
				return nil, err
			}
			if attempt == opts.Attempts {
				break
			}

			if opts.Delay > 0 {
				select {
				case <-time.After(opts.Delay):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		}

		return nil, fmt.Errorf("failed after %d attempt(s): %w", opts.Attempts, lastErr)
	}
}

func defaultRetryable(err error) bool {
	switch err.(type) {
	case *capability.ValidationError, *capability.MissingHandlerError:
		return false
	}
	return true
}

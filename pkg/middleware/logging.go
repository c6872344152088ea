package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lantos1618/better-ui-sub002/pkg/capability"
)

// Logging returns a stage that logs each execution with its duration and
// outcome. The capability name identifies the stage's log lines.
func Logging(logger zerolog.Logger, name string) capability.Middleware {
	return func(ctx context.Context, input interface{}, inv *capability.Invocation, next capability.Next) (interface{}, error) {
		start := time.Now()

		logger.Debug().
			Str("capability", name).
			Bool("trusted_origin", inv.TrustedOrigin).
			Str("session", inv.Session).
			Msg("Executing capability")

		result, err := next()
		duration := time.Since(start)

		if err != nil {
			logger.Error().
				Str("capability", name).
				Dur("duration", duration).
				Err(err).
				Msg("Capability execution failed")
			return nil, err
		}

		logger.Debug().
			Str("capability", name).
			Dur("duration", duration).
			Msg("Capability execution completed")

		return result, nil
	}
}

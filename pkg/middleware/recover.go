package middleware

import (
	"context"
	"fmt"

	"github.com/lantos1618/better-ui-sub002/pkg/capability"
)

// Recover returns a stage that converts a panic in any downstream stage or
// handler into an ordinary error instead of crashing the caller.
func Recover() capability.Middleware {
	return func(ctx context.Context, input interface{}, inv *capability.Invocation, next capability.Next) (result interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				result = nil
				err = fmt.Errorf("capability panicked: %v", r)
			}
		}()
		return next()
	}
}

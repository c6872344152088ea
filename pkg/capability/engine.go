package capability

import (
	"context"
	"errors"
	"fmt"
)

// Run executes a built capability: validation, then the middleware chain,
// then origin dispatch. A nil inv materializes a default Invocation.
//
// The engine performs no retry, timeout or logging; failures from any
// stage propagate to the caller unchanged.
func Run(ctx context.Context, def *Definition, rawInput interface{}, inv *Invocation) (interface{}, error) {
	if def == nil {
		return nil, fmt.Errorf("capability definition is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if inv == nil {
		inv = NewInvocation()
	}

	if def.schema != nil {
		if err := def.schema.Validate(rawInput); err != nil {
			var vErr *ValidationError
			if errors.As(err, &vErr) {
				vErr.Capability = def.name
			}
			return nil, err
		}
	}

	// Onion chain: stages run outward-in before next(), inward-out after.
	var invoke func(index int) (interface{}, error)
	invoke = func(index int) (interface{}, error) {
		if index < len(def.middleware) {
			stage := def.middleware[index]
			return stage(ctx, rawInput, inv, func() (interface{}, error) {
				return invoke(index + 1)
			})
		}
		return dispatch(ctx, def, rawInput, inv)
	}

	return invoke(0)
}

// dispatch selects the handler for the invocation's origin and runs it.
func dispatch(ctx context.Context, def *Definition, input interface{}, inv *Invocation) (interface{}, error) {
	handler := def.handlerFor(inv.TrustedOrigin)
	if handler == nil {
		return nil, &MissingHandlerError{Capability: def.name, TrustedOrigin: inv.TrustedOrigin}
	}
	return handler(ctx, input, inv)
}

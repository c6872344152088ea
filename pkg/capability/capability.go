package capability

import (
	"context"
)

// Handler executes a capability with validated input and the invocation
// context.
type Handler func(ctx context.Context, input interface{}, inv *Invocation) (interface{}, error)

// Renderer turns a capability result into a renderable fragment. Pure
// presentation; the engine never calls it.
type Renderer func(result, input, liveState interface{}) (interface{}, error)

// Next invokes the remainder of the middleware chain and ultimately the
// origin dispatch step.
type Next func() (interface{}, error)

// Middleware wraps the rest of the execution pipeline. A stage either
// calls next exactly once to continue (and may transform the returned
// result or error), or declines to call it to short-circuit.
type Middleware func(ctx context.Context, input interface{}, inv *Invocation, next Next) (interface{}, error)

// handlerSet is the origin-dispatch choice resolved once per call.
type handlerSet int

const (
	handlersTrustedOnly handlerSet = iota
	handlersUntrustedOnly
	handlersBoth
)

// Definition is an immutable, built capability. Construct one through a
// Builder; a Definition may be shared by a Registry and any number of
// concurrent Run calls.
type Definition struct {
	name              string
	description       string
	tags              []string
	schema            *Schema
	execute           Handler
	clientExecute     Handler
	render            Renderer
	middleware        []Middleware
	restrictToTrusted bool
	handlers          handlerSet
}

// Name returns the unique capability name.
func (d *Definition) Name() string { return d.name }

// Description returns the capability description.
func (d *Definition) Description() string { return d.description }

// Tags returns a copy of the capability's tags.
func (d *Definition) Tags() []string {
	tags := make([]string, len(d.tags))
	copy(tags, d.tags)
	return tags
}

// Schema returns the input schema, or nil when any input is accepted.
func (d *Definition) Schema() *Schema { return d.schema }

// HasInput reports whether an input schema is attached.
func (d *Definition) HasInput() bool { return d.schema != nil }

// HasExecute reports whether a trusted-origin handler is attached.
func (d *Definition) HasExecute() bool { return d.execute != nil }

// HasClientExecute reports whether an untrusted-origin handler is attached.
func (d *Definition) HasClientExecute() bool { return d.clientExecute != nil }

// HasRender reports whether a render callback is attached.
func (d *Definition) HasRender() bool { return d.render != nil }

// HasMiddleware reports whether any middleware stage is attached.
func (d *Definition) HasMiddleware() bool { return len(d.middleware) > 0 }

// RestrictedToTrustedOrigin reports whether the untrusted path is disabled.
func (d *Definition) RestrictedToTrustedOrigin() bool { return d.restrictToTrusted }

// Render invokes the render callback for an external renderer. The engine
// never calls this; it is exposed for the surrounding application.
func (d *Definition) Render(result, input, liveState interface{}) (interface{}, error) {
	if d.render == nil {
		return nil, &MissingHandlerError{Capability: d.name}
	}
	return d.render(result, input, liveState)
}

// handlerFor resolves the origin dispatch choice against the context's
// origin flag. Returns nil when no handler is usable for the origin.
func (d *Definition) handlerFor(trustedOrigin bool) Handler {
	if !trustedOrigin && !d.restrictToTrusted {
		switch d.handlers {
		case handlersUntrustedOnly, handlersBoth:
			return d.clientExecute
		}
	}
	return d.execute
}

// WithMiddleware returns a copy of def whose pipeline runs the given
// stages before def's own middleware. The original definition is left
// untouched, so a registry can replace a definition with an instrumented
// copy without affecting other holders.
func WithMiddleware(def *Definition, stages ...Middleware) *Definition {
	if def == nil || len(stages) == 0 {
		return def
	}
	clone := *def
	combined := make([]Middleware, 0, len(stages)+len(def.middleware))
	combined = append(combined, stages...)
	combined = append(combined, def.middleware...)
	clone.middleware = combined
	return &clone
}

// HasTag reports whether the capability carries the exact tag.
func (d *Definition) HasTag(tag string) bool {
	for _, existing := range d.tags {
		if existing == tag {
			return true
		}
	}
	return false
}

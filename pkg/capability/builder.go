package capability

import (
	"context"
	"encoding/json"
	"fmt"
)

// TypedHandler is a handler over the builder's static input/output types.
type TypedHandler[In, Out any] func(ctx context.Context, input In, inv *Invocation) (Out, error)

// TypedRenderer renders a typed result for a typed input. liveState is
// opaque presentation state owned by the external renderer.
type TypedRenderer[In, Out any] func(result Out, input In, liveState interface{}) (interface{}, error)

// Builder accumulates a capability definition step by step. Each
// attachment returns the builder for chaining; re-attaching the same kind
// of step replaces the prior value (middleware and tags accumulate).
// Attachment errors are sticky and surfaced by Build.
type Builder[In, Out any] struct {
	def   Definition
	built bool
	err   error
}

// New starts a builder for a capability with the given name. In fixes the
// type handed to handlers once input is validated; Out fixes the type
// handed to the renderer.
func New[In, Out any](name string) *Builder[In, Out] {
	b := &Builder[In, Out]{def: Definition{name: name}}
	if name == "" {
		b.err = &BuildError{Reason: "capability name cannot be empty"}
	}
	return b
}

// guard records a sticky error for attachments after Build and reports
// whether the attachment should be skipped.
func (b *Builder[In, Out]) guard() bool {
	if b.err != nil {
		return true
	}
	if b.built {
		b.err = &BuildError{Capability: b.def.name, Reason: "cannot modify a built capability"}
		return true
	}
	return false
}

// Input attaches the input schema. Absent schema means any input is
// accepted unchanged.
func (b *Builder[In, Out]) Input(schema *Schema) *Builder[In, Out] {
	if b.guard() {
		return b
	}
	b.def.schema = schema
	return b
}

// Execute attaches the trusted-origin handler.
func (b *Builder[In, Out]) Execute(fn TypedHandler[In, Out]) *Builder[In, Out] {
	if b.guard() {
		return b
	}
	b.def.execute = eraseHandler(fn)
	return b
}

// ClientExecute attaches the untrusted-origin handler, used when the
// invocation context reports an untrusted caller.
func (b *Builder[In, Out]) ClientExecute(fn TypedHandler[In, Out]) *Builder[In, Out] {
	if b.guard() {
		return b
	}
	b.def.clientExecute = eraseHandler(fn)
	return b
}

// ExecuteHandler attaches an untyped trusted-origin handler, bypassing
// the builder's input decoding. Useful for handlers produced elsewhere,
// e.g. a transport's remote forwarder.
func (b *Builder[In, Out]) ExecuteHandler(fn Handler) *Builder[In, Out] {
	if b.guard() {
		return b
	}
	b.def.execute = fn
	return b
}

// ClientExecuteHandler attaches an untyped untrusted-origin handler.
func (b *Builder[In, Out]) ClientExecuteHandler(fn Handler) *Builder[In, Out] {
	if b.guard() {
		return b
	}
	b.def.clientExecute = fn
	return b
}

// Render attaches the rendering callback. The engine never invokes it.
func (b *Builder[In, Out]) Render(fn TypedRenderer[In, Out]) *Builder[In, Out] {
	if b.guard() {
		return b
	}
	b.def.render = func(result, input, liveState interface{}) (interface{}, error) {
		typedResult, err := decodeAs[Out](result)
		if err != nil {
			return nil, fmt.Errorf("failed to decode render result: %w", err)
		}
		typedInput, err := decodeAs[In](input)
		if err != nil {
			return nil, fmt.Errorf("failed to decode render input: %w", err)
		}
		return fn(typedResult, typedInput, liveState)
	}
	return b
}

// Middleware appends a stage to the chain. Stages run in attachment order.
func (b *Builder[In, Out]) Middleware(stage Middleware) *Builder[In, Out] {
	if b.guard() {
		return b
	}
	b.def.middleware = append(b.def.middleware, stage)
	return b
}

// Describe sets the capability description.
func (b *Builder[In, Out]) Describe(text string) *Builder[In, Out] {
	if b.guard() {
		return b
	}
	b.def.description = text
	return b
}

// Tag appends discovery tags.
func (b *Builder[In, Out]) Tag(tags ...string) *Builder[In, Out] {
	if b.guard() {
		return b
	}
	b.def.tags = append(b.def.tags, tags...)
	return b
}

// RestrictOrigin disables the untrusted-origin path even when a client
// handler is attached.
func (b *Builder[In, Out]) RestrictOrigin() *Builder[In, Out] {
	if b.guard() {
		return b
	}
	b.def.restrictToTrusted = true
	return b
}

// Build freezes the definition. Further attachment attempts fail with a
// build error surfaced by the next Build call.
func (b *Builder[In, Out]) Build() (*Definition, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.built {
		return &b.def, nil
	}
	if b.def.execute == nil && b.def.clientExecute == nil {
		return nil, &BuildError{
			Capability: b.def.name,
			Reason:     fmt.Sprintf("Capability %q must have an execute handler.", b.def.name),
		}
	}

	switch {
	case b.def.execute != nil && b.def.clientExecute != nil:
		b.def.handlers = handlersBoth
	case b.def.clientExecute != nil:
		b.def.handlers = handlersUntrustedOnly
	default:
		b.def.handlers = handlersTrustedOnly
	}

	b.built = true
	return &b.def, nil
}

// MustBuild is Build for package-level capability declarations; it panics
// on a build error.
func (b *Builder[In, Out]) MustBuild() *Definition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// eraseHandler wraps a typed handler so the engine can drive it with the
// validated raw input. Decoding failures surface as handler errors.
func eraseHandler[In, Out any](fn TypedHandler[In, Out]) Handler {
	return func(ctx context.Context, input interface{}, inv *Invocation) (interface{}, error) {
		typedInput, err := decodeAs[In](input)
		if err != nil {
			return nil, fmt.Errorf("failed to decode input: %w", err)
		}
		return fn(ctx, typedInput, inv)
	}
}

// decodeAs converts a value to T, preferring a direct type assertion and
// falling back to a JSON round-trip for map-shaped input.
func decodeAs[T any](value interface{}) (T, error) {
	if typed, ok := value.(T); ok {
		return typed, nil
	}

	var typed T
	if value == nil {
		return typed, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return typed, err
	}
	if err := json.Unmarshal(raw, &typed); err != nil {
		return typed, err
	}
	return typed, nil
}

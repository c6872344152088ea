// Package capability defines named, schema-validated capabilities and
// executes them through a middleware pipeline with origin-aware dispatch.
//
// Invariants:
// - Capability names are unique within a Registry.
// - Input is schema-validated before any middleware or handler runs.
// - Definitions are immutable once built.
// - The engine never swallows errors; it is a propagation conduit.
//
// Usage:
//
//	def, _ := capability.New[map[string]interface{}, interface{}]("echo").
//		Input(capability.ObjectSchema(capability.Param{Name: "message", Type: "string", Description: "text", Required: true})).
//		Execute(func(ctx context.Context, in map[string]interface{}, inv *capability.Invocation) (interface{}, error) {
//			return in["message"], nil
//		}).
//		Build()
//	out, err := capability.Run(context.Background(), def, map[string]interface{}{"message": "hi"}, nil)
package capability

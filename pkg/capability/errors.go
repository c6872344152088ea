package capability

import "fmt"

// Issue describes a single field-level validation failure.
type Issue struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// ValidationError is returned when raw input fails the capability's schema.
// It never reaches a handler or middleware stage.
type ValidationError struct {
	Capability string
	Issues     []Issue
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("capability %q: input validation failed: %d issue(s)", e.Capability, len(e.Issues))
}

// MissingHandlerError is returned when no handler is usable for the
// resolved origin.
type MissingHandlerError struct {
	Capability    string
	TrustedOrigin bool
}

func (e *MissingHandlerError) Error() string {
	return fmt.Sprintf("Capability %q has no execute handler for this origin.", e.Capability)
}

// NotFoundError is returned by registry operations that require the
// capability to be present.
type NotFoundError struct {
	Capability string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Capability %q not found", e.Capability)
}

// BuildError is returned by the builder when a definition cannot be
// finalized or is modified after finalization.
type BuildError struct {
	Capability string
	Reason     string
}

func (e *BuildError) Error() string {
	return e.Reason
}

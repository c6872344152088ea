// Package transport exposes a capability registry over HTTP: execution,
// discovery, health, metrics and a websocket stream of execution events.
// The engine itself owns no wire format; this package is one concrete
// collaborator.
package transport

import "time"

// ExecuteRequest is the body of an execute call.
type ExecuteRequest struct {
	Input   map[string]interface{} `json:"input"`
	Session string                 `json:"session,omitempty"`
}

// ExecuteResponse is the body of an execute reply.
type ExecuteResponse struct {
	Success      bool        `json:"success"`
	Output       interface{} `json:"output,omitempty"`
	Error        string      `json:"error,omitempty"`
	InvocationID string      `json:"invocation_id,omitempty"`
	DurationMs   int64       `json:"duration_ms"`
}

// ExecutionEvent is broadcast to event stream subscribers after every
// execute call handled by the server.
type ExecutionEvent struct {
	InvocationID string    `json:"invocation_id"`
	Capability   string    `json:"capability"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status       string `json:"status"`
	Capabilities int    `json:"capabilities"`
	UptimeSec    int64  `json:"uptime_sec"`
}

// ServerOptions configures the transport server.
type ServerOptions struct {
	Host               string
	Port               int
	RateLimitPerMinute int
}

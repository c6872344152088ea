// Package middleware provides reusable capability middleware stages:
// logging, metrics, panic recovery, bounded retry, timeouts, rate limiting
// and audit recording. The execution engine knows nothing about any of
// them; each is an ordinary capability.Middleware value attached through
// the builder.
package middleware

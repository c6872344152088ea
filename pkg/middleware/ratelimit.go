package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lantos1618/better-ui-sub002/pkg/capability"
)

// limiterState tracks request timestamps per caller key.
type limiterState struct {
	requests []int64
}

// RateLimiter implements per-caller rate limiting with a sliding window.
type RateLimiter struct {
	limits            map[string]*limiterState
	maxRequestsPerMin int
	mu                sync.Mutex
}

// NewRateLimiter creates a rate limiter allowing maxRequestsPerMinute
// requests per caller key per minute.
func NewRateLimiter(maxRequestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		limits:            make(map[string]*limiterState),
		maxRequestsPerMin: maxRequestsPerMinute,
	}
}

// Allow checks whether a request from key is within the limit, recording
// it when allowed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now().UnixMilli()

	state, exists := rl.limits[key]
	if !exists {
		state = &limiterState{}
		rl.limits[key] = state
	}

	// Drop requests older than the one-minute window
	valid := state.requests[:0]
	for _, reqTime := range state.requests {
		if now-reqTime < 60000 {
			valid = append(valid, reqTime)
		}
	}
	state.requests = valid

	if len(state.requests) >= rl.maxRequestsPerMin {
		return false
	}

	state.requests = append(state.requests, now)
	return true
}

// RetryAfter returns the number of seconds until the window frees a slot
// for key.
func (rl *RateLimiter) RetryAfter(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, exists := rl.limits[key]
	if !exists || len(state.requests) == 0 {
		return 0
	}

	now := time.Now().UnixMilli()
	oldest := state.requests[0]

	retryAfterMs := 60000 - (now - oldest)
	if retryAfterMs < 0 {
		return 0
	}
	return int((retryAfterMs + 999) / 1000)
}

// RateLimitError is returned when a caller exceeds the limit.
type RateLimitError struct {
	Key        string
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q, retry after %ds", e.Key, e.RetryAfter)
}

// RateLimit returns a stage that short-circuits with a *RateLimitError
// when the invocation's identity (or session, when identity is empty)
// exceeds the limiter's window.
func RateLimit(limiter *RateLimiter) capability.Middleware {
	return func(ctx context.Context, input interface{}, inv *capability.Invocation, next capability.Next) (interface{}, error) {
		key := inv.Identity
		if key == "" {
			key = inv.Session
		}

		if !limiter.Allow(key) {
			return nil, &RateLimitError{Key: key, RetryAfter: limiter.RetryAfter(key)}
		}

		return next()
	}
}

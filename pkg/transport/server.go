package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lantos1618/better-ui-sub002/internal/metrics"
	"github.com/lantos1618/better-ui-sub002/pkg/capability"
	"github.com/lantos1618/better-ui-sub002/pkg/middleware"
)

// Server serves a capability registry over HTTP. The server is the
// trusted side: execute calls dispatch to trusted handlers on behalf of
// remote callers.
type Server struct {
	options   ServerOptions
	server    *http.Server
	registry  *capability.Registry
	limiter   *middleware.RateLimiter
	metrics   *metrics.Metrics
	hub       *Hub
	logger    zerolog.Logger
	startTime time.Time
}

// NewServer creates a transport server for the given registry.
func NewServer(options ServerOptions, reg *capability.Registry, m *metrics.Metrics, logger zerolog.Logger) (*Server, error) {
	if reg == nil {
		return nil, fmt.Errorf("capability registry is required")
	}

	if options.Port == 0 {
		options.Port = 3001
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.RateLimitPerMinute == 0 {
		options.RateLimitPerMinute = 100
	}

	s := &Server{
		options:   options,
		registry:  reg,
		limiter:   middleware.NewRateLimiter(options.RateLimitPerMinute),
		metrics:   m,
		hub:       NewHub(m, logger),
		logger:    logger,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/capabilities", s.handleList)
	mux.HandleFunc("GET /v1/capabilities/{name}", s.handleDescribe)
	mux.HandleFunc("POST /v1/capabilities/{name}/execute", s.handleExecute)
	mux.HandleFunc("GET /v1/events", s.hub.HandleUpgrade)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", options.Host, options.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	return s, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving. Blocks until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Transport server starting")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("transport server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Transport server stopping")
	s.hub.Close()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		Capabilities: s.registry.Len(),
		UptimeSec:    int64(time.Since(s.startTime).Seconds()),
	})
	s.countRequest("/healthz", http.StatusOK)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.DescribeAll())
	s.countRequest("/v1/capabilities", http.StatusOK)
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	summary, err := s.registry.Describe(name)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		s.countRequest("/v1/capabilities/{name}", http.StatusNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
	s.countRequest("/v1/capabilities/{name}", http.StatusOK)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	const path = "/v1/capabilities/{name}/execute"
	name := r.PathValue("name")
	caller := callerAddr(r)

	if !s.limiter.Allow(caller) {
		w.Header().Set("Retry-After", strconv.Itoa(s.limiter.RetryAfter(caller)))
		s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		s.countRequest(path, http.StatusTooManyRequests)
		if s.metrics != nil {
			s.metrics.RateLimitDeniedTotal.WithLabelValues(name).Inc()
		}
		return
	}

	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		s.countRequest(path, http.StatusBadRequest)
		return
	}

	invocationID := uuid.NewString()

	invOpts := []capability.InvocationOption{capability.WithIdentity(caller)}
	if req.Session != "" {
		invOpts = append(invOpts, capability.WithSession(req.Session))
	}
	inv := capability.NewInvocation(invOpts...)

	start := time.Now()
	output, err := s.registry.Execute(r.Context(), name, req.Input, inv)
	duration := time.Since(start)

	event := ExecutionEvent{
		InvocationID: invocationID,
		Capability:   name,
		Status:       "success",
		DurationMs:   duration.Milliseconds(),
		Timestamp:    start,
	}

	if err != nil {
		event.Status = "failure"
		event.Error = err.Error()
		s.hub.Broadcast(event)

		status := statusForError(err)
		if s.metrics != nil {
			var vErr *capability.ValidationError
			if errors.As(err, &vErr) {
				s.metrics.ValidationFailuresTotal.WithLabelValues(name).Inc()
			}
		}
		s.logger.Warn().
			Str("capability", name).
			Str("invocation_id", invocationID).
			Err(err).
			Msg("Capability execution failed")
		s.writeJSON(w, status, ExecuteResponse{
			Success:      false,
			Error:        err.Error(),
			InvocationID: invocationID,
			DurationMs:   duration.Milliseconds(),
		})
		s.countRequest(path, status)
		return
	}

	s.hub.Broadcast(event)

	s.logger.Debug().
		Str("capability", name).
		Str("invocation_id", invocationID).
		Dur("duration", duration).
		Msg("Capability executed")

	s.writeJSON(w, http.StatusOK, ExecuteResponse{
		Success:      true,
		Output:       output,
		InvocationID: invocationID,
		DurationMs:   duration.Milliseconds(),
	})
	s.countRequest(path, http.StatusOK)
}

// statusForError maps engine failures to HTTP statuses. Handler errors
// surface as 500; the engine's own taxonomy gets more specific codes.
func statusForError(err error) int {
	var nfErr *capability.NotFoundError
	if errors.As(err, &nfErr) {
		return http.StatusNotFound
	}
	var vErr *capability.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest
	}
	var mErr *capability.MissingHandlerError
	if errors.As(err, &mErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) countRequest(path string, status int) {
	if s.metrics != nil {
		s.metrics.HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
	}
}

func callerAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

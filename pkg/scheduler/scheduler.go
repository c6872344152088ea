// Package scheduler runs registered capabilities on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/lantos1618/better-ui-sub002/internal/metrics"
	"github.com/lantos1618/better-ui-sub002/pkg/capability"
)

// Entry describes one scheduled capability run.
type Entry struct {
	// Name of the registered capability to execute.
	Name string `json:"name"`
	// Spec is a 5-field cron expression, e.g. "*/5 * * * *".
	Spec string `json:"spec"`
	// Input is the raw input passed to every run.
	Input map[string]interface{} `json:"input,omitempty"`
	// Timeout bounds each run. Zero means no limit.
	Timeout time.Duration `json:"-"`
}

// Scheduler drives cron-triggered capability runs against a registry.
// Each run gets a fresh invocation context, so scheduled runs never
// share cache state with each other.
type Scheduler struct {
	registry *capability.Registry
	cron     *cron.Cron
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	mu       sync.Mutex
	entries  map[cron.EntryID]Entry
	started  bool
}

// New creates a scheduler over the given registry.
func New(reg *capability.Registry, m *metrics.Metrics, logger zerolog.Logger) (*Scheduler, error) {
	if reg == nil {
		return nil, fmt.Errorf("capability registry is required")
	}

	return &Scheduler{
		registry: reg,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
		metrics:  m,
		logger:   logger,
		entries:  make(map[cron.EntryID]Entry),
	}, nil
}

// Add validates and registers a scheduled entry. The capability must
// already exist in the registry; a schedule for an unknown name is
// rejected up front rather than failing on its first tick.
func (s *Scheduler) Add(entry Entry) (cron.EntryID, error) {
	if entry.Name == "" {
		return 0, fmt.Errorf("entry name is required")
	}
	if entry.Spec == "" {
		return 0, fmt.Errorf("entry spec is required")
	}
	if s.registry.Get(entry.Name) == nil {
		return 0, &capability.NotFoundError{Capability: entry.Name}
	}

	id, err := s.cron.AddFunc(entry.Spec, func() { s.run(entry) })
	if err != nil {
		return 0, fmt.Errorf("invalid cron expression %q: %w", entry.Spec, err)
	}

	s.mu.Lock()
	s.entries[id] = entry
	s.mu.Unlock()

	s.logger.Info().
		Str("capability", entry.Name).
		Str("spec", entry.Spec).
		Msg("Scheduled capability")

	return id, nil
}

// Remove cancels a scheduled entry.
func (s *Scheduler) Remove(id cron.EntryID) {
	s.cron.Remove(id)

	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// Clear cancels every scheduled entry.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	ids := make([]cron.EntryID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.entries = make(map[cron.EntryID]Entry)
	s.mu.Unlock()

	for _, id := range ids {
		s.cron.Remove(id)
	}
}

// Entries returns the current schedule.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, id := range s.cron.Entries() {
		if e, ok := s.entries[id.ID]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Start begins firing schedules. Safe to call once.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info().Int("entries", len(s.entries)).Msg("Scheduler started")
}

// Stop halts scheduling and waits for in-flight runs to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow executes an entry immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, entry Entry) (interface{}, error) {
	return s.execute(ctx, entry)
}

func (s *Scheduler) run(entry Entry) {
	ctx := context.Background()
	if entry.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, entry.Timeout)
		defer cancel()
	}

	if _, err := s.execute(ctx, entry); err != nil {
		s.logger.Error().
			Err(err).
			Str("capability", entry.Name).
			Msg("Scheduled run failed")
	}
}

func (s *Scheduler) execute(ctx context.Context, entry Entry) (interface{}, error) {
	start := time.Now()
	inv := capability.NewInvocation(capability.WithIdentity("scheduler"))

	output, err := s.registry.Execute(ctx, entry.Name, entry.Input, inv)

	status := "success"
	if err != nil {
		status = "failure"
	}
	if s.metrics != nil {
		s.metrics.ScheduledRunsTotal.WithLabelValues(entry.Name, status).Inc()
		if err != nil {
			s.metrics.ScheduledRunErrorsTotal.WithLabelValues(entry.Name).Inc()
		}
	}

	s.logger.Debug().
		Str("capability", entry.Name).
		Str("status", status).
		Dur("duration", time.Since(start)).
		Msg("Scheduled run finished")

	return output, err
}

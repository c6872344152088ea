package observability

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Event statuses recorded in the audit log.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Event is a single audited capability execution.
type Event struct {
	ID         string        `json:"id"`
	Capability string        `json:"capability"`
	Actor      string        `json:"actor,omitempty"`
	Session    string        `json:"session,omitempty"`
	Trusted    bool          `json:"trusted"`
	Status     string        `json:"status"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Recorder accepts audit events.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// AuditStore persists audit events to sqlite and mirrors them to a
// structured logger.
type AuditStore struct {
	db     *sql.DB
	logger zerolog.Logger
	mu     sync.Mutex
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	capability TEXT NOT NULL,
	actor TEXT,
	session TEXT,
	trusted INTEGER NOT NULL,
	status TEXT NOT NULL,
	error TEXT,
	duration_ms INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_capability ON audit_events(capability);
CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_events(created_at);
`

// NewAuditStore opens (or creates) the audit database at path. Use
// ":memory:" for tests.
func NewAuditStore(path string, logger zerolog.Logger) (*AuditStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	if _, err := db.Exec(auditSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	return &AuditStore{db: db, logger: logger}, nil
}

// Record inserts the event and mirrors it to the logger.
func (s *AuditStore) Record(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, capability, actor, session, trusted, status, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Capability, event.Actor, event.Session,
		boolToInt(event.Trusted), event.Status, event.Error,
		event.Duration.Milliseconds(), event.Timestamp.UTC(),
	)
	if err != nil {
		s.logger.Error().Err(err).Str("capability", event.Capability).Msg("Failed to record audit event")
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	s.logger.Info().
		Str("audit_id", event.ID).
		Str("capability", event.Capability).
		Str("actor", event.Actor).
		Str("status", event.Status).
		Dur("duration", event.Duration).
		Msg("Capability audited")

	return nil
}

// Recent returns up to limit events for a capability, newest first. An
// empty capability matches everything.
func (s *AuditStore) Recent(ctx context.Context, capabilityName string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, capability, actor, session, trusted, status, error, duration_ms, created_at
		FROM audit_events`
	args := []interface{}{}
	if capabilityName != "" {
		query += ` WHERE capability = ?`
		args = append(args, capabilityName)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var event Event
		var trusted int
		var durationMs int64
		if err := rows.Scan(&event.ID, &event.Capability, &event.Actor, &event.Session,
			&trusted, &event.Status, &event.Error, &durationMs, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		event.Trusted = trusted != 0
		event.Duration = time.Duration(durationMs) * time.Millisecond
		events = append(events, event)
	}

	return events, rows.Err()
}

// Close closes the underlying database.
func (s *AuditStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package observability

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *AuditStore {
	t.Helper()

	store, err := NewAuditStore(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAuditStore_RecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	events := []Event{
		{ID: "1", Capability: "echo", Actor: "alice", Trusted: true, Status: StatusSuccess, Duration: 5 * time.Millisecond, Timestamp: time.Now().Add(-2 * time.Second)},
		{ID: "2", Capability: "sum", Actor: "bob", Status: StatusFailure, Error: "boom", Duration: time.Millisecond, Timestamp: time.Now().Add(-time.Second)},
		{ID: "3", Capability: "echo", Actor: "alice", Trusted: true, Status: StatusSuccess, Duration: 2 * time.Millisecond, Timestamp: time.Now()},
	}
	for _, event := range events {
		require.NoError(t, store.Record(ctx, event))
	}

	all, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].ID, "newest first")

	echoes, err := store.Recent(ctx, "echo", 10)
	require.NoError(t, err)
	require.Len(t, echoes, 2)
	for _, event := range echoes {
		assert.Equal(t, "echo", event.Capability)
		assert.True(t, event.Trusted)
	}

	failures, err := store.Recent(ctx, "sum", 10)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, StatusFailure, failures[0].Status)
	assert.Equal(t, "boom", failures[0].Error)
}

func TestAuditStore_RecentLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, Event{
			ID:         string(rune('a' + i)),
			Capability: "echo",
			Status:     StatusSuccess,
			Timestamp:  time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	limited, err := store.Recent(ctx, "echo", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestAuditStore_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	store, err := NewAuditStore(path, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, store.Record(context.Background(), Event{ID: "1", Capability: "echo", Status: StatusSuccess}))
	require.NoError(t, store.Close())

	// Reopen and confirm the event survived
	reopened, err := NewAuditStore(path, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	events, err := reopened.Recent(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestAuditStore_TimestampDefaulted(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Record(context.Background(), Event{ID: "1", Capability: "echo", Status: StatusSuccess}))

	events, err := store.Recent(context.Background(), "echo", 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
}

package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixfetch/pixfetch/internal/domain"
	"github.com/pixfetch/pixfetch/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*HistoryStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.json")
	return New(path, testLogger()), path
}

func entry(id string, status domain.Status) domain.HistoryEntry {
	return domain.HistoryEntry{
		ID:        id,
		URL:       "https://example.com/" + id,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}

func TestListMissingFileIsEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpsertPrependsNewEntries(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, entry("a", domain.StatusQueued)))
	require.NoError(t, s.Upsert(ctx, entry("b", domain.StatusQueued)))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].ID, "newest entry comes first")
	assert.Equal(t, "a", entries[1].ID)
}

func TestUpsertReplacesInPlace(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, entry("a", domain.StatusQueued)))
	require.NoError(t, s.Upsert(ctx, entry("b", domain.StatusQueued)))

	updated := entry("a", domain.StatusCompleted)
	updated.Result = &domain.Result{Total: 5, Folder: "out", Duration: 1.2}
	require.NoError(t, s.Upsert(ctx, updated))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Updating must not move the entry to the front.
	assert.Equal(t, "b", entries[0].ID)
	assert.Equal(t, "a", entries[1].ID)
	assert.Equal(t, domain.StatusCompleted, entries[1].Status)
	require.NotNil(t, entries[1].Result)
	assert.Equal(t, 5, entries[1].Result.Total)
}

func TestUpsertEnforcesCap(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < store.MaxEntries+10; i++ {
		require.NoError(t, s.Upsert(ctx, entry(fmt.Sprintf("job-%d", i), domain.StatusCompleted)))
	}

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, store.MaxEntries)

	// The newest survive; the oldest fall off the end.
	assert.Equal(t, fmt.Sprintf("job-%d", store.MaxEntries+9), entries[0].ID)
	assert.Equal(t, "job-10", entries[len(entries)-1].ID)
}

func TestRemove(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, entry("a", domain.StatusCompleted)))
	require.NoError(t, s.Upsert(ctx, entry("b", domain.StatusCompleted)))

	require.NoError(t, s.Remove(ctx, "a"))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].ID)

	// Removing an unknown id is a no-op.
	require.NoError(t, s.Remove(ctx, "nope"))
}

func TestClear(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, entry("a", domain.StatusCompleted)))
	require.NoError(t, s.Clear(ctx))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The document itself holds an empty array, not the old contents.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Empty(t, raw)
}

func TestMalformedFileTreatedAsEmpty(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// A write after the corruption starts a fresh document.
	require.NoError(t, s.Upsert(ctx, entry("a", domain.StatusQueued)))
	entries, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSurvivesReopen(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, entry("a", domain.StatusRunning)))

	reopened := New(path, testLogger())
	entries, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].ID)
	assert.True(t, entries[0].Orphaned())
}

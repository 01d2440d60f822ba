// Package file implements the history store as a single JSON document on
// disk, rewritten in full on every update.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pixfetch/pixfetch/internal/domain"
	"github.com/pixfetch/pixfetch/internal/store"
)

// HistoryStore persists job history as one JSON array, newest-first,
// capped at store.MaxEntries. Every access is a read-modify-write of the
// whole document, guarded by an internal mutex so concurrent updates for
// the same id cannot lose a write.
type HistoryStore struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

var _ store.HistoryStore = (*HistoryStore)(nil)

// New creates a file-backed HistoryStore at the given path. The file is
// created lazily on first write.
func New(path string, logger *slog.Logger) *HistoryStore {
	return &HistoryStore{
		path:   path,
		logger: logger.With("component", "file_history_store"),
	}
}

// List implements store.HistoryStore.
func (s *HistoryStore) List(ctx context.Context) ([]domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

// Upsert implements store.HistoryStore.
func (s *HistoryStore) Upsert(ctx context.Context, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	replaced := false
	for i := range entries {
		if entries[i].ID == entry.ID {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append([]domain.HistoryEntry{entry}, entries...)
	}
	if len(entries) > store.MaxEntries {
		entries = entries[:store.MaxEntries]
	}
	return s.save(entries)
}

// Remove implements store.HistoryStore.
func (s *HistoryStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	filtered := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) == len(entries) {
		return nil
	}
	return s.save(filtered)
}

// Clear implements store.HistoryStore.
func (s *HistoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save([]domain.HistoryEntry{})
}

// load reads the whole document. An unreadable or malformed file is
// treated as empty; the in-memory state stays authoritative.
func (s *HistoryStore) load() []domain.HistoryEntry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("history file unreadable, treating as empty", "path", s.path, "error", err)
		}
		return nil
	}
	var entries []domain.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("history file malformed, treating as empty", "path", s.path, "error", err)
		return nil
	}
	return entries
}

// save rewrites the whole document atomically: write to a temp file in
// the same directory, then rename over the target.
func (s *HistoryStore) save(entries []domain.HistoryEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp history file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

// Package store defines the persistence contract for job history.
package store

import (
	"context"

	"github.com/pixfetch/pixfetch/internal/domain"
)

// MaxEntries caps the persisted record set. When an insert would exceed
// it, the oldest entries are dropped first.
const MaxEntries = 200

// HistoryStore is a durable, bounded, ordered record set of job
// outcomes, keyed by job id and ordered newest-first. Implementations
// serialize their own read-modify-write cycles; callers may invoke
// methods concurrently.
type HistoryStore interface {
	// List returns every persisted entry, newest-first. An unreadable
	// or missing backing document is treated as empty, not an error.
	List(ctx context.Context) ([]domain.HistoryEntry, error)

	// Upsert writes the entry. An existing entry with the same id is
	// overwritten in place, keeping its position; a new entry is
	// prepended and the set is trimmed to MaxEntries.
	Upsert(ctx context.Context, entry domain.HistoryEntry) error

	// Remove deletes the entry with the given id. Removing an id that
	// is not present is a no-op.
	Remove(ctx context.Context, id string) error

	// Clear wipes the whole record set.
	Clear(ctx context.Context) error
}

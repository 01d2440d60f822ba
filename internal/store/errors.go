package store

import "errors"

// Common store errors used across all history store implementations.
var (
	// ErrNotFound is returned when a requested entry does not exist in
	// the store.
	ErrNotFound = errors.New("history entry not found")

	// ErrUnavailable is returned when the backing storage cannot be
	// reached. Callers are expected to degrade gracefully: in-memory
	// state stays authoritative for the current process and durability
	// is best-effort.
	ErrUnavailable = errors.New("history store unavailable")
)

// Package postgres implements the history store on PostgreSQL, as an
// alternative backend to the JSON document file for deployments that
// already run a database.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver

	"github.com/pixfetch/pixfetch/internal/domain"
	"github.com/pixfetch/pixfetch/internal/store"
)

// HistoryStore persists job history in the history_entries table with
// the same externally observed semantics as the file store: keyed by id,
// listed newest-first, capped at store.MaxEntries with the oldest rows
// dropped first.
type HistoryStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.HistoryStore = (*HistoryStore)(nil)

// Open connects to the database, verifies the connection and returns a
// HistoryStore. The caller owns the returned *sql.DB through Close.
func Open(databaseURL string, logger *slog.Logger) (*HistoryStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	return &HistoryStore{
		db:     db,
		logger: logger.With("component", "postgres_history_store"),
	}, nil
}

// NewWithDB wraps an existing connection, mainly for tests.
func NewWithDB(db *sql.DB, logger *slog.Logger) *HistoryStore {
	return &HistoryStore{
		db:     db,
		logger: logger.With("component", "postgres_history_store"),
	}
}

// Close releases the underlying connection pool.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// List implements store.HistoryStore.
func (s *HistoryStore) List(ctx context.Context) ([]domain.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, keyword, status, created_at, completed_at, result, error_message
		FROM history_entries
		ORDER BY created_at DESC
		LIMIT $1`, store.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var (
			entry       domain.HistoryEntry
			completedAt sql.NullTime
			resultJSON  []byte
		)
		if err := rows.Scan(
			&entry.ID, &entry.URL, &entry.Keyword, &entry.Status,
			&entry.CreatedAt, &completedAt, &resultJSON, &entry.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if completedAt.Valid {
			t := completedAt.Time
			entry.CompletedAt = &t
		}
		if len(resultJSON) > 0 {
			var result domain.Result
			if err := json.Unmarshal(resultJSON, &result); err != nil {
				s.logger.Warn("malformed result payload in history entry", "id", entry.ID, "error", err)
			} else {
				entry.Result = &result
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history entries: %w", err)
	}
	return entries, nil
}

// Upsert implements store.HistoryStore.
func (s *HistoryStore) Upsert(ctx context.Context, entry domain.HistoryEntry) error {
	var resultJSON []byte
	if entry.Result != nil {
		data, err := json.Marshal(entry.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		resultJSON = data
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history_entries (id, url, keyword, status, created_at, completed_at, result, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at,
			result = EXCLUDED.result,
			error_message = EXCLUDED.error_message`,
		entry.ID, entry.URL, entry.Keyword, entry.Status,
		entry.CreatedAt, entry.CompletedAt, resultJSON, entry.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert history entry: %w", err)
	}

	// Trim beyond the cap, oldest first.
	_, err = s.db.ExecContext(ctx, `
		DELETE FROM history_entries
		WHERE id NOT IN (
			SELECT id FROM history_entries ORDER BY created_at DESC LIMIT $1
		)`, store.MaxEntries)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	return nil
}

// Remove implements store.HistoryStore.
func (s *HistoryStore) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM history_entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to remove history entry: %w", err)
	}
	return nil
}

// Clear implements store.HistoryStore.
func (s *HistoryStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history_entries`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

package domain

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a scrape job.
type Status string

// Possible job status values
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
)

// Common validation errors for Job
var (
	ErrEmptyURL      = errors.New("job URL cannot be empty")
	ErrInvalidURL    = errors.New("job URL is not a valid absolute URL")
	ErrInvalidStatus = errors.New("invalid job status")
)

// IsTerminal reports whether the status is one from which no further
// transition occurs.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusAborted:
		return true
	default:
		return false
	}
}

// IsActive reports whether a job in this status still occupies, or is
// waiting for, a concurrency slot.
func (s Status) IsActive() bool {
	return s == StatusQueued || s == StatusRunning
}

// isValidStatus checks if the given status is a valid Status.
func isValidStatus(s Status) bool {
	switch s {
	case StatusQueued, StatusRunning, StatusCompleted, StatusFailed, StatusAborted:
		return true
	default:
		return false
	}
}

// Result summarizes the outcome of a completed job.
type Result struct {
	Total    int     `json:"total"`
	Folder   string  `json:"folder"`
	Duration float64 `json:"duration"`
}

// Job represents one unit of requested scrape work and its lifecycle state.
// It lives in memory for the duration of the process; only the HistoryEntry
// projection survives a restart.
type Job struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Keyword     string     `json:"keyword"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Result      *Result    `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// NewJob creates a new Job in queued status with a generated ID.
// The URL must parse as an absolute URL; the keyword may be empty.
// Returns an error if validation fails.
func NewJob(rawURL, keyword string) (*Job, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, ErrEmptyURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidURL
	}

	return &Job{
		ID:        uuid.New().String(),
		URL:       rawURL,
		Keyword:   keyword,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Validate checks if the Job has valid data.
func (j *Job) Validate() error {
	if j.URL == "" {
		return ErrEmptyURL
	}
	if !isValidStatus(j.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// HistoryEntry returns the persisted projection of the job: terminal
// outcome fields only, no events, no subscriber state.
func (j *Job) HistoryEntry() HistoryEntry {
	return HistoryEntry{
		ID:          j.ID,
		URL:         j.URL,
		Keyword:     j.Keyword,
		Status:      j.Status,
		CreatedAt:   j.CreatedAt,
		CompletedAt: j.CompletedAt,
		Result:      j.Result,
		Error:       j.Error,
	}
}

// HistoryEntry is the durable projection of a Job stored in the history
// document. It outlives the process and is the sole source of truth on
// restart.
type HistoryEntry struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Keyword     string     `json:"keyword"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Result      *Result    `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Orphaned reports whether this entry was left in a non-terminal state by
// a previous process. A running job cannot have survived process death, so
// queued and running entries are treated identically.
func (e HistoryEntry) Orphaned() bool {
	return e.Status == StatusQueued || e.Status == StatusRunning
}

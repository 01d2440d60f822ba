package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	job, err := NewJob("https://example.com/gallery", "cats")
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "https://example.com/gallery", job.URL)
	assert.Equal(t, "cats", job.Keyword)
	assert.Equal(t, StatusQueued, job.Status)
	assert.WithinDuration(t, time.Now().UTC(), job.CreatedAt, time.Minute)
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.Result)
}

func TestNewJobValidation(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"empty url", "", ErrEmptyURL},
		{"whitespace url", "   ", ErrEmptyURL},
		{"relative url", "/gallery", ErrInvalidURL},
		{"missing scheme", "example.com/gallery", ErrInvalidURL},
		{"garbage", "ht tp://bad", ErrInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJob(tt.url, "kw")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewJobAllowsEmptyKeyword(t *testing.T) {
	job, err := NewJob("https://example.com", "")
	require.NoError(t, err)
	assert.Empty(t, job.Keyword)
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusAborted.IsTerminal())
}

func TestStatusIsActive(t *testing.T) {
	assert.True(t, StatusQueued.IsActive())
	assert.True(t, StatusRunning.IsActive())
	assert.False(t, StatusCompleted.IsActive())
	assert.False(t, StatusFailed.IsActive())
	assert.False(t, StatusAborted.IsActive())
}

func TestValidateRejectsUnknownStatus(t *testing.T) {
	job, err := NewJob("https://example.com", "")
	require.NoError(t, err)

	job.Status = Status("sleeping")
	assert.ErrorIs(t, job.Validate(), ErrInvalidStatus)
}

func TestHistoryEntryProjection(t *testing.T) {
	job, err := NewJob("https://example.com", "cats")
	require.NoError(t, err)

	now := time.Now().UTC()
	job.Status = StatusCompleted
	job.StartedAt = &now
	job.CompletedAt = &now
	job.Result = &Result{Total: 3, Folder: "out", Duration: 2.5}

	entry := job.HistoryEntry()
	assert.Equal(t, job.ID, entry.ID)
	assert.Equal(t, job.URL, entry.URL)
	assert.Equal(t, job.Keyword, entry.Keyword)
	assert.Equal(t, StatusCompleted, entry.Status)
	assert.Equal(t, job.Result, entry.Result)
	assert.False(t, entry.Orphaned())
}

func TestHistoryEntryOrphaned(t *testing.T) {
	assert.True(t, HistoryEntry{Status: StatusQueued}.Orphaned())
	assert.True(t, HistoryEntry{Status: StatusRunning}.Orphaned())
	assert.False(t, HistoryEntry{Status: StatusCompleted}.Orphaned())
	assert.False(t, HistoryEntry{Status: StatusFailed}.Orphaned())
	assert.False(t, HistoryEntry{Status: StatusAborted}.Orphaned())
}

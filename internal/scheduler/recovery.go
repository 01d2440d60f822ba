package scheduler

import (
	"context"
	"fmt"

	"github.com/pixfetch/pixfetch/internal/domain"
)

// Recover reconciles persisted history against the registry on startup:
// every entry left queued or running by a previous process is re-admitted
// as a fresh queued job with its original id and parameters, through the
// same admission path as a new submission. Entries are processed in
// stored history order, so recovered jobs keep their relative FIFO
// position. Recovery never fabricates a result or error; the job
// re-executes in full. Returns the number of jobs re-admitted.
func (s *Scheduler) Recover(ctx context.Context) (int, error) {
	entries, err := s.history.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read history for recovery: %w", err)
	}

	recovered := 0
	for _, entry := range entries {
		if !entry.Orphaned() {
			continue
		}
		if s.restore(entry) {
			recovered++
		}
	}

	if recovered > 0 {
		s.logger.Info("recovered orphaned jobs", "count", recovered)
	}
	return recovered, nil
}

// restore re-admits one orphaned history entry. Reports false when a job
// with the same id is already registered.
func (s *Scheduler) restore(entry domain.HistoryEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[entry.ID]; exists {
		return false
	}

	job := &domain.Job{
		ID:        entry.ID,
		URL:       entry.URL,
		Keyword:   entry.Keyword,
		Status:    domain.StatusQueued,
		CreatedAt: entry.CreatedAt,
	}
	if err := job.Validate(); err != nil {
		s.logger.Warn("skipping unrecoverable history entry",
			"job_id", entry.ID,
			"error", err)
		return false
	}

	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	s.caster.Register(job.ID)
	s.persistLocked(job)

	if s.running < s.limit {
		s.startLocked(job)
	} else {
		s.queue = append(s.queue, job.ID)
	}

	s.logger.Info("re-admitted orphaned job",
		"job_id", job.ID,
		"url", job.URL,
		"status", job.Status)
	return true
}

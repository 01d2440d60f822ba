// Package scheduler implements admission control, the FIFO wait queue,
// the job state machine and crash recovery for scrape jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pixfetch/pixfetch/internal/broadcast"
	"github.com/pixfetch/pixfetch/internal/domain"
	"github.com/pixfetch/pixfetch/internal/store"
	"github.com/pixfetch/pixfetch/internal/worker"
)

// ErrJobNotFound is returned for operations on an unknown job id.
var ErrJobNotFound = fmt.Errorf("job not found")

// DuplicateError rejects a submission whose url+keyword matches a job
// that is still queued or running. It carries the conflicting job's id.
type DuplicateError struct {
	ExistingID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate active job: %s", e.ExistingID)
}

// Config holds scheduler tunables.
type Config struct {
	// MaxConcurrent bounds the number of jobs simultaneously running.
	// If zero or negative, defaults to 2.
	MaxConcurrent int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{MaxConcurrent: 2}
}

// Scheduler is the authoritative owner of the in-memory job registry,
// the wait queue and the running counter. Every operation is an atomic
// critical section under one mutex; only worker execution happens
// outside it.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*domain.Job
	order   []string // creation order, oldest first
	queue   []string // FIFO wait queue of queued job ids
	running int
	limit   int
	cancels map[string]context.CancelFunc

	history store.HistoryStore
	caster  *broadcast.Broadcaster
	factory worker.Factory
	logger  *slog.Logger

	wg       sync.WaitGroup
	baseCtx  context.Context
	stopBase context.CancelFunc
}

// New creates a Scheduler.
func New(cfg Config, history store.HistoryStore, caster *broadcast.Broadcaster, factory worker.Factory, logger *slog.Logger) *Scheduler {
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = 2
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:     make(map[string]*domain.Job),
		cancels:  make(map[string]context.CancelFunc),
		limit:    limit,
		history:  history,
		caster:   caster,
		factory:  factory,
		logger:   logger.With("component", "scheduler"),
		baseCtx:  baseCtx,
		stopBase: cancel,
	}
}

// Submit validates and admits a new job. If a concurrency slot is free
// the job starts immediately, otherwise it joins the tail of the wait
// queue. Returns a DuplicateError when a job with the same url and
// keyword is still queued or running.
func (s *Scheduler) Submit(ctx context.Context, rawURL, keyword string) (*domain.Job, error) {
	job, err := domain.NewJob(rawURL, keyword)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.jobs {
		if existing.URL == rawURL && existing.Keyword == keyword && existing.Status.IsActive() {
			return nil, &DuplicateError{ExistingID: existing.ID}
		}
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

	s.logger.Info("job submitted",
		"job_id", job.ID,
		"url", job.URL,
		"keyword", job.Keyword,
		"status", job.Status)

	snapshot := *job
	return &snapshot, nil
}

// Get returns a snapshot of the job with the given id.
func (s *Scheduler) Get(id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// List returns snapshots of all in-memory jobs, most recently created
// first.
func (s *Scheduler) List() []*domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]*domain.Job, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if job, ok := s.jobs[s.order[i]]; ok {
			snapshot := *job
			jobs = append(jobs, &snapshot)
		}
	}
	return jobs
}

// Abort requests cancellation of a queued or running job. The request
// is acknowledged without waiting for worker teardown; the concurrency
// slot is released once the worker returns. Aborting a job that already
// reached a terminal state is a no-op.
func (s *Scheduler) Abort(id string) (*domain.Job, error) {
	s.mu.Lock()

	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		snapshot := *job
		s.mu.Unlock()
		return &snapshot, nil
	}

	if job.Status == domain.StatusQueued {
		s.dequeueLocked(id)
	}
	cancel := s.cancels[id]

	now := time.Now().UTC()
	job.Status = domain.StatusAborted
	job.CompletedAt = &now
	s.persistLocked(job)
	s.caster.Close(id)
	s.admitNextLocked()

	s.logger.Info("job aborted", "job_id", id)

	snapshot := *job
	s.mu.Unlock()

	// Signal the worker outside the lock; teardown completes in the
	// background and releases the slot.
	if cancel != nil {
		cancel()
	}
	return &snapshot, nil
}

// Delete removes a job from the registry and wait queue and purges its
// history record. A running job's worker is cancelled first; the slot
// is released once its teardown completes. Unlike Abort this writes no
// terminal history entry.
func (s *Scheduler) Delete(ctx context.Context, id string) error {
	s.mu.Lock()

	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return ErrJobNotFound
	}
	if job.Status == domain.StatusQueued {
		s.dequeueLocked(id)
	}
	cancel := s.cancels[id]

	delete(s.jobs, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.caster.Drop(id)
	if err := s.history.Remove(ctx, id); err != nil {
		s.logger.Warn("failed to purge history entry", "job_id", id, "error", err)
	}
	s.admitNextLocked()

	s.logger.Info("job deleted", "job_id", id)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// Subscribe attaches a progress observer to a job's event stream.
func (s *Scheduler) Subscribe(id string) (*broadcast.Subscription, error) {
	sub, err := s.caster.Subscribe(id)
	if err != nil {
		return nil, ErrJobNotFound
	}
	return sub, nil
}

// History returns the persisted record set merged with live status for
// any job still resident in the registry: live state always wins over
// the stale persisted snapshot.
func (s *Scheduler) History(ctx context.Context) ([]domain.HistoryEntry, error) {
	entries, err := s.history.List(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range entries {
		if job, ok := s.jobs[entries[i].ID]; ok {
			entries[i] = job.HistoryEntry()
		}
	}
	return entries, nil
}

// ClearHistory wipes the persisted record set. In-memory jobs are
// untouched.
func (s *Scheduler) ClearHistory(ctx context.Context) error {
	return s.history.Clear(ctx)
}

// Shutdown cancels every running worker and waits for teardown, bounded
// by ctx.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.stopBase()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler shut down")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler shutdown grace period elapsed")
		return ctx.Err()
	}
}

// startLocked transitions a queued job to running and launches its
// worker. Caller must hold s.mu.
func (s *Scheduler) startLocked(job *domain.Job) {
	now := time.Now().UTC()
	job.Status = domain.StatusRunning
	job.StartedAt = &now
	s.running++
	s.persistLocked(job)

	ctx, cancel := context.WithCancel(s.baseCtx)
	s.cancels[job.ID] = cancel

	w := s.factory.New(job.ID, job.URL, job.Keyword)
	s.wg.Add(1)
	go s.runJob(ctx, job, w)

	s.logger.Info("job started", "job_id", job.ID, "running", s.running)
}

// admitNextLocked starts queued jobs while slots are free. Invoked after
// every operation that could free a slot or shrink the queue, so waiting
// work is never stranded. Caller must hold s.mu.
func (s *Scheduler) admitNextLocked() {
	for len(s.queue) > 0 && s.running < s.limit {
		id := s.queue[0]
		s.queue = s.queue[1:]
		job, ok := s.jobs[id]
		if !ok || job.Status != domain.StatusQueued {
			// Deleted or already transitioned meanwhile.
			continue
		}
		s.startLocked(job)
	}
}

// dequeueLocked removes a job id from the wait queue. Caller must hold
// s.mu.
func (s *Scheduler) dequeueLocked(id string) {
	for i, qid := range s.queue {
		if qid == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

// persistLocked writes the job's history projection. Persistence is
// best-effort: failures are logged and never abort the triggering
// operation. Caller must hold s.mu.
func (s *Scheduler) persistLocked(job *domain.Job) {
	if err := s.history.Upsert(context.Background(), job.HistoryEntry()); err != nil {
		s.logger.Warn("failed to persist history entry", "job_id", job.ID, "error", err)
	}
}

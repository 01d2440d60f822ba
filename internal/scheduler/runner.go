package scheduler

import (
	"context"
	"time"

	"github.com/pixfetch/pixfetch/internal/domain"
	"github.com/pixfetch/pixfetch/internal/worker"
)

// eventBuffer is the capacity of the channel between a worker and its
// runner. The runner drains it continuously; the buffer only smooths
// bursts.
const eventBuffer = 16

// runJob owns one job's running-to-terminal transition. It relays every
// worker event to the broadcaster, applies the terminal interpretation
// rule (a complete event claims the terminal transition; an error event
// or a worker failure marks the job failed only if nothing terminal was
// observed first) and releases the concurrency slot exactly once when
// the worker has torn down.
func (s *Scheduler) runJob(ctx context.Context, job *domain.Job, w worker.Worker) {
	defer s.wg.Done()
	defer s.release(job.ID)

	events := make(chan worker.Event, eventBuffer)
	runErr := make(chan error, 1)
	go func() {
		defer close(events)
		runErr <- w.Run(ctx, events)
	}()

	for ev := range events {
		s.caster.Publish(job.ID, ev)

		switch ev.Type {
		case worker.EventComplete:
			s.finish(job, domain.StatusCompleted, &domain.Result{
				Total:    ev.Total,
				Folder:   ev.Folder,
				Duration: ev.Duration,
			}, "")
		case worker.EventError:
			s.finish(job, domain.StatusFailed, nil, ev.Message)
		}
	}

	// A worker failing without having emitted a terminal event is an
	// error terminal transition with the failure's message.
	if err := <-runErr; err != nil {
		s.finish(job, domain.StatusFailed, nil, err.Error())
	}
}

// finish applies a terminal transition. Terminal states are absorbing:
// once the job is terminal every later call is a no-op, which is what
// ignores an error event arriving after completion. A job that was
// deleted while running gets no terminal history entry.
func (s *Scheduler) finish(job *domain.Job, status domain.Status, result *domain.Result, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.Status.IsTerminal() {
		return
	}
	if _, registered := s.jobs[job.ID]; !registered {
		return
	}

	now := time.Now().UTC()
	job.Status = status
	job.CompletedAt = &now
	job.Result = result
	job.Error = errMsg
	s.persistLocked(job)
	s.caster.Close(job.ID)

	s.logger.Info("job finished",
		"job_id", job.ID,
		"status", status,
		"error", errMsg)
}

// release frees the job's concurrency slot after worker teardown and
// admits waiting work.
func (s *Scheduler) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.cancels[id]; ok {
		delete(s.cancels, id)
		cancel()
	}
	s.running--
	s.admitNextLocked()
}

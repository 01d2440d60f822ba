// Package broadcast implements per-job fan-out of progress events to any
// number of live subscribers, with replay-on-subscribe of the events
// buffered so far.
package broadcast

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/pixfetch/pixfetch/internal/worker"
)

// ErrUnknownJob is returned when subscribing to a job id that has no
// event stream (never registered, or already dropped).
var ErrUnknownJob = errors.New("unknown job stream")

// subscriberBuffer is the per-subscriber channel capacity. A subscriber
// that falls this far behind is dropped rather than stalling the job.
const subscriberBuffer = 64

// Subscription is one live observer's attachment to a job stream.
// Replay holds every event published before the subscription was taken,
// in publish order. Live receives all subsequent events until the job
// reaches a terminal state or Cancel is called; it is nil when the
// stream had already closed at subscribe time.
type Subscription struct {
	Replay []worker.Event
	Live   <-chan worker.Event

	jobID string
	ch    chan worker.Event
	b     *Broadcaster
}

// Cancel detaches the subscriber. It is a no-op for the job's lifecycle;
// the job keeps running and streaming regardless of subscriber presence.
func (s *Subscription) Cancel() {
	if s.b != nil && s.ch != nil {
		s.b.unsubscribe(s.jobID, s.ch)
	}
}

// stream is the buffered event log plus live subscriber set for one job.
type stream struct {
	mu     sync.Mutex
	events []worker.Event
	subs   map[chan worker.Event]struct{}
	closed bool
}

// Broadcaster owns one stream per registered job.
type Broadcaster struct {
	mu      sync.RWMutex
	streams map[string]*stream
	logger  *slog.Logger
}

// New creates a Broadcaster.
func New(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		streams: make(map[string]*stream),
		logger:  logger.With("component", "broadcaster"),
	}
}

// Register creates the event stream for a job. Called once at job
// creation, before any event can be published.
func (b *Broadcaster) Register(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.streams[jobID]; !ok {
		b.streams[jobID] = &stream{subs: make(map[chan worker.Event]struct{})}
	}
}

// Publish appends the event to the job's buffer and delivers it to every
// live subscriber. Delivery is best-effort: a subscriber whose channel is
// full is disconnected instead of blocking the publisher. Publishing to
// an unknown job id is a no-op.
func (b *Broadcaster) Publish(jobID string, ev worker.Event) {
	b.mu.RLock()
	st := b.streams[jobID]
	b.mu.RUnlock()
	if st == nil {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.events = append(st.events, ev)

	for ch := range st.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop it so the job is never stalled.
			delete(st.subs, ch)
			close(ch)
			b.logger.Debug("dropped slow subscriber", "job_id", jobID)
		}
	}
}

// Subscribe attaches a new observer to the job's stream. The returned
// subscription carries the full replay; its Live channel is nil if the
// stream has already closed (the job reached a terminal state), in which
// case there is no live phase.
func (b *Broadcaster) Subscribe(jobID string) (*Subscription, error) {
	b.mu.RLock()
	st := b.streams[jobID]
	b.mu.RUnlock()
	if st == nil {
		return nil, ErrUnknownJob
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	replay := make([]worker.Event, len(st.events))
	copy(replay, st.events)

	sub := &Subscription{Replay: replay, jobID: jobID, b: b}
	if !st.closed {
		ch := make(chan worker.Event, subscriberBuffer)
		st.subs[ch] = struct{}{}
		sub.ch = ch
		sub.Live = ch
	}
	return sub, nil
}

// unsubscribe removes a subscriber channel from the stream and closes it.
func (b *Broadcaster) unsubscribe(jobID string, ch chan worker.Event) {
	b.mu.RLock()
	st := b.streams[jobID]
	b.mu.RUnlock()
	if st == nil {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.subs[ch]; ok {
		delete(st.subs, ch)
		close(ch)
	}
}

// Close ends the live phase of a job's stream: every subscriber channel
// is closed and later subscribers receive replay only. The buffered
// events stay available until Drop.
func (b *Broadcaster) Close(jobID string) {
	b.mu.RLock()
	st := b.streams[jobID]
	b.mu.RUnlock()
	if st == nil {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return
	}
	st.closed = true
	for ch := range st.subs {
		delete(st.subs, ch)
		close(ch)
	}
}

// Drop destroys the stream entirely, closing any remaining subscribers.
// Called when the job is deleted from the registry.
func (b *Broadcaster) Drop(jobID string) {
	b.mu.Lock()
	st := b.streams[jobID]
	delete(b.streams, jobID)
	b.mu.Unlock()
	if st == nil {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.closed = true
	for ch := range st.subs {
		delete(st.subs, ch)
		close(ch)
	}
}

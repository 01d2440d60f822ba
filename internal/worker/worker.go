// Package worker defines the contract between the scheduler and the
// external task executors that perform the actual scraping work.
package worker

import "context"

// Event types with scheduling significance. Every other type is opaque
// progress payload forwarded verbatim to subscribers.
const (
	// EventComplete is the terminal event of a successful run. It carries
	// the total image count, the output folder and the run duration.
	EventComplete = "complete"

	// EventError is the terminal event of a failed run. It carries a
	// human-readable message.
	EventError = "error"
)

// Event is a single progress message emitted by a Worker. The zero value
// of every field except Type is omitted from the wire representation, so
// each event type only carries the fields relevant to it.
type Event struct {
	Type     string  `json:"type"`
	Message  string  `json:"message,omitempty"`
	URL      string  `json:"url,omitempty"`
	Current  int     `json:"current,omitempty"`
	Total    int     `json:"total,omitempty"`
	Folder   string  `json:"folder,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// IsTerminal reports whether this event ends the stream.
func (e Event) IsTerminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// Worker performs one job's work, streaming progress events into the
// provided channel until it returns. The worker must stop as soon as
// possible when ctx is cancelled; cancellation is the only way the
// scheduler requests early termination. The worker must not close the
// events channel — the caller owns it.
type Worker interface {
	Run(ctx context.Context, events chan<- Event) error
}

// Factory creates a Worker per job. Worker instances are exclusively
// owned by their job and never shared.
type Factory interface {
	New(jobID, url, keyword string) Worker
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(jobID, url, keyword string) Worker

// New implements Factory.
func (f FactoryFunc) New(jobID, url, keyword string) Worker {
	return f(jobID, url, keyword)
}

// Package events defines the lifecycle events emitted while walking a
// selection and delivering its reports.
package events

import "sync"

// Event is the interface implemented by all walker and delivery events.
type Event interface {
	isEvent()
}

// Emitter is the interface for emitting events.
// Implementations must be safe for concurrent use: traversals of different
// top-level directories emit from separate goroutines.
type Emitter interface {
	Emit(event Event)
}

// Traversal events

// TraversalStarted is emitted when expansion of a top-level directory begins.
type TraversalStarted struct {
	Root string
}

func (TraversalStarted) isEvent() {}

// DirectoryDrained is emitted when every page of one queued directory has been read.
type DirectoryDrained struct {
	Root  string
	Path  string
	Pages int
}

func (DirectoryDrained) isEvent() {}

// BranchFailed is emitted when a page read or file materialization fails.
type BranchFailed struct {
	Root string
	Path string
	Op   string // "read-entries" or "materialize"
	Err  error
}

func (BranchFailed) isEvent() {}

// TraversalComplete is emitted when the queue of a top-level directory is empty.
type TraversalComplete struct {
	Root      string
	Records   int
	Failures  int
	Truncated bool
	Outcome   string
}

func (TraversalComplete) isEvent() {}

// Delivery events

// ReportQueued is emitted when a report enters the outbound queue.
type ReportQueued struct {
	Kind    string
	Records int
}

func (ReportQueued) isEvent() {}

// ReportDelivered is emitted when a report was handed to the channel.
type ReportDelivered struct {
	Kind    string
	Records int
}

func (ReportDelivered) isEvent() {}

// DeliveryFailed is emitted when the channel rejected a report.
type DeliveryFailed struct {
	Kind string
	Err  error
}

func (DeliveryFailed) isEvent() {}

// Collector events

// ReportStored is emitted by the collector after persisting a received report.
type ReportStored struct {
	ID      string
	Kind    string
	Records int
}

func (ReportStored) isEvent() {}

// Discard is an Emitter that drops every event.
//
//nolint:gochecknoglobals // Stateless sentinel emitter
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(Event) {}

// Multi returns an Emitter that forwards each event to every non-nil emitter.
func Multi(emitters ...Emitter) Emitter {
	targets := make([]Emitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			targets = append(targets, e)
		}
	}

	return multi(targets)
}

type multi []Emitter

func (m multi) Emit(event Event) {
	for _, e := range m {
		e.Emit(event)
	}
}

// Recorder is an Emitter that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit records the event.
func (r *Recorder) Emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Event(nil), r.events...)
}

// Package diagnostics carries structured commander events to logs, metrics and InfluxDB.
package diagnostics

import (
	"sync"
	"time"

	"github.com/AIAI/extension/pkg/core"
)

// Kind classifies an event
type Kind string

const (
	KindDecision  Kind = "decision"
	KindError     Kind = "error"
	KindTick      Kind = "tick"
	KindLifecycle Kind = "lifecycle"
)

// Event is one structured diagnostics record. Sinks must not retain Fields past Emit.
type Event struct {
	Kind     Kind           `json:"kind"`
	Side     core.Side      `json:"side"`
	Tick     uint64         `json:"tick"`
	Message  string         `json:"message"`
	Err      error          `json:"-"`
	Fatal    bool           `json:"fatal,omitempty"`
	Duration time.Duration  `json:"duration,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
	Time     time.Time      `json:"time"`
}

// Error returns the error text, or "" for events without an error
func (e Event) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Sink is a write-only event consumer
type Sink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(e Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Nop discards events
type Nop struct{}

func (Nop) Emit(Event) {}

// Multi fans an event out to several sinks
type Multi []Sink

// NewMulti drops nil sinks
func NewMulti(sinks ...Sink) Multi {
	out := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m Multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Recorder keeps the most recent events in memory for status reports and tests
type Recorder struct {
	mu     sync.Mutex
	limit  int
	events []Event
}

// NewRecorder creates a recorder holding at most limit events. limit < 1 means 100.
func NewRecorder(limit int) *Recorder {
	if limit < 1 {
		limit = 100
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if over := len(r.events) - r.limit; over > 0 {
		r.events = append([]Event(nil), r.events[over:]...)
	}
}

// Events returns a copy of the recorded events, oldest first
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Filter returns the recorded events of one kind
func (r *Recorder) Filter(kind Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

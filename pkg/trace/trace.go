// Package trace records the steps a resolution takes.
//
// A [Recorder] collects an ordered list of [Event] values: algorithm states
// entered, filesystem probes and their outcomes, descriptor lookups, symlink
// hops and the final result or error. A nil *Recorder is valid and records
// nothing, so the resolver can call it unconditionally.
//
// Recorded traces can be printed, exported as Graphviz DOT with [ToDOT], or
// rendered to SVG with [RenderSVG].
package trace

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies an event.
type Kind string

const (
	KindState      Kind = "state"
	KindProbe      Kind = "probe"
	KindDescriptor Kind = "descriptor"
	KindLink       Kind = "link"
	KindResult     Kind = "result"
	KindError      Kind = "error"
)

// Event is a single recorded step.
type Event struct {
	Seq      int           `json:"seq"`
	Kind     Kind          `json:"kind"`
	Name     string        `json:"name"`
	Location string        `json:"location,omitempty"`
	Found    bool          `json:"found"`
	Detail   string        `json:"detail,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

// String formats the event for terminal output.
func (e Event) String() string {
	switch e.Kind {
	case KindProbe, KindDescriptor:
		mark := "miss"
		if e.Found {
			mark = "hit"
		}
		return fmt.Sprintf("%3d %-10s %-16s %s (%s)", e.Seq, e.Kind, e.Name, e.Location, mark)
	case KindLink:
		return fmt.Sprintf("%3d %-10s %s -> %s", e.Seq, e.Kind, e.Location, e.Detail)
	default:
		if e.Location == "" {
			return fmt.Sprintf("%3d %-10s %s %s", e.Seq, e.Kind, e.Name, e.Detail)
		}
		return fmt.Sprintf("%3d %-10s %-16s %s %s", e.Seq, e.Kind, e.Name, e.Location, e.Detail)
	}
}

// Recorder accumulates events. It is safe for concurrent use.
type Recorder struct {
	ID string

	mu     sync.Mutex
	start  time.Time
	events []Event
}

// New returns an empty recorder with a fresh ID.
func New() *Recorder {
	return &Recorder{ID: uuid.NewString(), start: time.Now()}
}

// State records entry into an algorithm state.
func (r *Recorder) State(name, location string) {
	r.add(Event{Kind: KindState, Name: name, Location: location})
}

// Probe records a filesystem probe.
func (r *Recorder) Probe(name, location string, found bool) {
	r.add(Event{Kind: KindProbe, Name: name, Location: location, Found: found})
}

// Descriptor records a descriptor lookup.
func (r *Recorder) Descriptor(location string, found bool) {
	r.add(Event{Kind: KindDescriptor, Name: "package.json", Location: location, Found: found})
}

// Link records a symlink hop.
func (r *Recorder) Link(from, to string) {
	r.add(Event{Kind: KindLink, Name: "readlink", Location: from, Detail: to, Found: true})
}

// Result records the final resolution.
func (r *Recorder) Result(location, format string) {
	r.add(Event{Kind: KindResult, Name: "resolved", Location: location, Detail: format, Found: true})
}

// Error records a terminal error.
func (r *Recorder) Error(err error) {
	r.add(Event{Kind: KindError, Name: "error", Detail: err.Error()})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *Recorder) add(e Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.start.IsZero() {
		r.start = time.Now()
	}
	e.Seq = len(r.events) + 1
	e.Elapsed = time.Since(r.start)
	r.events = append(r.events, e)
}

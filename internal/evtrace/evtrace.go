// Package evtrace implements a small mutex-guarded ring of timestamped
// events, used by the Slave's sync engine to record drift corrections and
// acquisition-FSM transitions for later inspection without affecting the
// control flow of the algorithm being traced.
package evtrace

import (
	"fmt"
	"sync"
	"time"
)

type event struct {
	at  time.Time
	txt string
}

// Trace is a bounded, mutex-guarded append-only log of debug events. The
// zero value is ready to use.
type Trace struct {
	mu     sync.Mutex
	events []event
	max    int
}

// New returns a Trace that keeps at most max events, discarding the oldest
// once full. max <= 0 means unbounded.
func New(max int) *Trace {
	return &Trace{max: max}
}

// Push records txt at the current time.
func (t *Trace) Push(txt string) { t.PushAt(time.Now(), txt) }

// Pushf records a formatted message at the current time.
func (t *Trace) Pushf(format string, args ...interface{}) {
	t.PushAt(time.Now(), fmt.Sprintf(format, args...))
}

// PushAt records txt at an explicit time, letting tests and deterministic
// replays control the timestamp.
func (t *Trace) PushAt(at time.Time, txt string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event{at, txt})
	if t.max > 0 && len(t.events) > t.max {
		t.events = t.events[len(t.events)-t.max:]
	}
}

// Lines renders the recorded events as "Ns: text" lines relative to the
// first event, and clears the trace.
func (t *Trace) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.events) == 0 {
		return nil
	}
	t0 := t.events[0].at
	out := make([]string, len(t.events))
	for i, ev := range t.events {
		out[i] = fmt.Sprintf("%.6fs: %s", ev.at.Sub(t0).Seconds(), ev.txt)
	}
	t.events = nil
	return out
}

package tanuki

import (
	"fmt"
	"sync"
)

// EventKind discriminates the values flowing from the worker to the frontend.
type EventKind int

const (
	// EventStatus is a short status message for the headline area.
	EventStatus EventKind = iota
	// EventPercent is an integer 0-100 progress update.
	EventPercent
	// EventTiming is a free-text timing note.
	EventTiming
	// EventLog is one console log line.
	EventLog
	// EventResult is the single terminal event of a run.
	EventResult
)

// Event is one progress emission. Ordering between events of the same run
// is FIFO; a run ends with exactly one EventResult, after which the stream
// is closed.
type Event struct {
	Kind    EventKind
	Text    string
	Percent int
	Success bool
}

// Emitter is the one-directional channel from the install worker to the
// presentation layer. The presentation side never blocks the worker as long
// as it keeps draining Events().
type Emitter struct {
	ch chan Event

	mu         sync.Mutex
	lastPct    int
	resultSent bool
}

func newEmitter() *Emitter {
	return &Emitter{ch: make(chan Event, 256)}
}

// Events returns the receive side of the stream. It is closed after the
// terminal result event.
func (e *Emitter) Events() <-chan Event { return e.ch }

func (e *Emitter) send(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resultSent {
		return
	}
	if ev.Kind == EventResult {
		e.resultSent = true
	}
	e.ch <- ev
	if ev.Kind == EventResult {
		close(e.ch)
	}
}

// Status emits a headline status message.
func (e *Emitter) Status(text string) {
	e.send(Event{Kind: EventStatus, Text: text})
}

// Percent emits a progress update. Values are clamped to 0-100 and are
// monotonically non-decreasing within a run; stale lower values are dropped.
func (e *Emitter) Percent(p int) {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	e.mu.Lock()
	if p < e.lastPct {
		e.mu.Unlock()
		return
	}
	e.lastPct = p
	e.mu.Unlock()
	e.send(Event{Kind: EventPercent, Percent: p})
}

// Timing emits a free-text timing note.
func (e *Emitter) Timing(format string, a ...any) {
	e.send(Event{Kind: EventTiming, Text: fmt.Sprintf(format, a...)})
}

// Log emits one console log line.
func (e *Emitter) Log(text string) {
	e.send(Event{Kind: EventLog, Text: text})
}

// Logf emits one formatted console log line.
func (e *Emitter) Logf(format string, a ...any) {
	e.Log(fmt.Sprintf(format, a...))
}

// Result emits the terminal event and closes the stream. Further emissions
// are silently dropped, so late goroutines cannot corrupt a finished run.
func (e *Emitter) Result(success bool, message string) {
	e.send(Event{Kind: EventResult, Text: message, Success: success})
}

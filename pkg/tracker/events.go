package tracker

import (
	"time"

	"github.com/workforce/tracker/pkg/api"
)

// Snapshot is a point-in-time copy of the tracker state. It shares no
// memory with the tracker.
type Snapshot struct {
	IsClockedIn       bool      `json:"is_clocked_in"`
	ActiveTask        *api.Task `json:"active_task"`
	AttendanceSeconds int       `json:"attendance_seconds"`
	TaskSeconds       int       `json:"task_seconds"`
	LastSync          time.Time `json:"last_sync"`
	At                time.Time `json:"at"`
	ClockBusy         bool      `json:"clock_busy"`
	TaskBusy          bool      `json:"task_busy"`
	Stale             bool      `json:"stale"`
}

// EventKind says why an Event was published
type EventKind int

const (
	// EventStateChanged follows every successful reconciliation and every
	// confirmed action
	EventStateChanged EventKind = iota
	// EventTick is the one-second local advance of a running counter
	EventTick
	// EventBusy marks an action starting or finishing
	EventBusy
	// EventGate is the periodic business-hours re-evaluation
	EventGate
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state_changed"
	case EventTick:
		return "tick"
	case EventBusy:
		return "busy"
	case EventGate:
		return "gate"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
}

// Subscribe registers fn for every event and returns its unsubscribe
// function. fn runs on the publishing goroutine (tick, run loop or action
// caller) and must not block.
func (t *Tracker) Subscribe(fn func(Event)) func() {
	t.subsMu.Lock()
	id := t.nextSubID
	t.nextSubID++
	t.subs[id] = fn
	t.subsMu.Unlock()

	return func() {
		t.subsMu.Lock()
		delete(t.subs, id)
		t.subsMu.Unlock()
	}
}

func (t *Tracker) publish(kind EventKind, snap Snapshot) {
	t.subsMu.Lock()
	fns := make([]func(Event), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.subsMu.Unlock()

	ev := Event{Kind: kind, Snapshot: snap}
	for _, fn := range fns {
		fn(ev)
	}
}

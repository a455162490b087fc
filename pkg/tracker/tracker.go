// Package tracker keeps the client's view of today's attendance and the
// active task in step with the backend. It derives the running counters
// locally between syncs, reconciles against the server after every action,
// and enforces the business-hours gate on user actions.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/workforce/tracker/pkg/api"
	"github.com/workforce/tracker/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSyncInterval = 30 * time.Second
	DefaultGateInterval = 60 * time.Second
	tickInterval        = time.Second
)

// Backend is the subset of the REST API the tracker drives
type Backend interface {
	ActiveAttendance(ctx context.Context) (*api.AttendanceStatus, error)
	ActiveTask(ctx context.Context) (*api.Task, error)
	ClockIn(ctx context.Context) (*api.ClockInResponse, error)
	ClockOut(ctx context.Context) error
	StartTask(ctx context.Context, taskID int64) error
	StopTask(ctx context.Context, taskID int64) error
}

// Options configures a Tracker. Zero values select the defaults.
type Options struct {
	Clock        clockwork.Clock
	SyncInterval time.Duration
	GateInterval time.Duration
	// OnSessionInvalid runs once per rejected request when the backend
	// reports the session is gone
	OnSessionInvalid func()
}

type counter int

const (
	attendanceCounter counter = iota
	taskCounter
)

type ticker struct {
	t    clockwork.Ticker
	done chan struct{}
}

// Tracker is the single owner of attendance and task state. All methods are
// safe for concurrent use.
type Tracker struct {
	backend Backend
	clock   clockwork.Clock
	opts    Options

	mu      sync.Mutex
	state   state
	tickers map[counter]*ticker
	closed  bool

	subsMu    sync.Mutex
	subs      map[int]func(Event)
	nextSubID int

	invalidate chan struct{}
	closeOnce  sync.Once
}

// New returns a Tracker over backend. Call Refresh or Run to load state.
func New(backend Backend, opts Options) *Tracker {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = DefaultSyncInterval
	}
	if opts.GateInterval <= 0 {
		opts.GateInterval = DefaultGateInterval
	}

	return &Tracker{
		backend:    backend,
		clock:      opts.Clock,
		opts:       opts,
		tickers:    make(map[counter]*ticker),
		subs:       make(map[int]func(Event)),
		invalidate: make(chan struct{}, 1),
	}
}

// Snapshot returns the current state with counters derived at the tracker
// clock's now
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.snapshot(t.clock.Now())
}

// Prime seeds the state from a cached snapshot. It is ignored once a
// reconciliation has completed, and the primed state is marked stale.
func (t *Tracker) Prime(snap Snapshot) {
	t.mu.Lock()
	if t.state.synced {
		t.mu.Unlock()
		return
	}
	at := snap.At
	if at.IsZero() {
		at = t.clock.Now()
	}
	t.state.isClockedIn = snap.IsClockedIn
	t.state.lastServerSeconds = max(snap.AttendanceSeconds, 0)
	t.state.lastSyncEpoch = at
	t.state.activeTask = snap.ActiveTask.Clone()
	t.state.lastTaskSeconds = 0
	if snap.ActiveTask != nil {
		t.state.lastTaskSeconds = max(snap.TaskSeconds, 0)
	}
	t.state.taskSyncEpoch = at
	t.state.stale = true
	t.syncTickersLocked()
	out := t.state.snapshot(t.clock.Now())
	t.mu.Unlock()

	t.publish(EventStateChanged, out)
}

// Refresh fetches attendance and the active task concurrently and applies
// them as the new truth. A failed task fetch keeps the previous task; a
// failed attendance fetch leaves the state untouched.
func (t *Tracker) Refresh(ctx context.Context) error {
	var (
		att       *api.AttendanceStatus
		task      *api.Task
		taskKnown bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := t.backend.ActiveAttendance(gctx)
		if err != nil {
			return err
		}
		att = a
		return nil
	})
	g.Go(func() error {
		tk, err := t.backend.ActiveTask(gctx)
		if err != nil {
			if api.IsSessionInvalid(err) {
				return err
			}
			// a failed attendance fetch cancels gctx; that is not a task failure
			if gctx.Err() == nil {
				logger.Warn("Active task fetch failed, keeping previous task", "error", err)
			}
			return nil
		}
		task, taskKnown = tk, true
		return nil
	})

	if err := g.Wait(); err != nil {
		if api.IsSessionInvalid(err) {
			return t.sessionInvalid(err)
		}
		logger.Error("Reconciliation failed", "error", err)
		return fmt.Errorf("reconcile: %w", err)
	}
	if att == nil {
		att = &api.AttendanceStatus{}
	}

	t.mu.Lock()
	now := t.clock.Now()
	t.state.applySync(att, task, taskKnown, now)
	t.syncTickersLocked()
	snap := t.state.snapshot(now)
	t.mu.Unlock()

	logger.Debug("Reconciled",
		"clocked_in", snap.IsClockedIn,
		"attendance_seconds", snap.AttendanceSeconds,
		"task_seconds", snap.TaskSeconds)
	t.publish(EventStateChanged, snap)
	return nil
}

// Invalidate requests a reconciliation from the Run loop. Requests made
// while one is pending coalesce.
func (t *Tracker) Invalidate() {
	select {
	case t.invalidate <- struct{}{}:
	default:
	}
}

// Run reconciles once, then keeps reconciling on the sync interval and on
// Invalidate, and republishes on the gate interval. It returns when ctx is
// done or the session becomes invalid, stopping all tickers.
func (t *Tracker) Run(ctx context.Context) error {
	defer t.Close()

	if err := t.Refresh(ctx); errors.Is(err, ErrSessionInvalid) {
		return err
	}

	syncTicker := t.clock.NewTicker(t.opts.SyncInterval)
	defer syncTicker.Stop()
	gateTicker := t.clock.NewTicker(t.opts.GateInterval)
	defer gateTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-syncTicker.Chan():
			if err := t.Refresh(ctx); errors.Is(err, ErrSessionInvalid) {
				return err
			}
		case <-t.invalidate:
			logger.Debug("Reconciling on invalidation")
			if err := t.Refresh(ctx); errors.Is(err, ErrSessionInvalid) {
				return err
			}
		case <-gateTicker.Chan():
			t.publish(EventGate, t.Snapshot())
		}
	}
}

// Close stops the display tickers. It is safe to call more than once.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		for c := range t.tickers {
			t.stopTickerLocked(c)
		}
		t.mu.Unlock()
	})
}

func (t *Tracker) sessionInvalid(cause error) error {
	logger.Warn("Session is no longer valid", "error", cause)
	if t.opts.OnSessionInvalid != nil {
		t.opts.OnSessionInvalid()
	}
	return fmt.Errorf("%w: %s", ErrSessionInvalid, api.Message(cause))
}

// syncTickersLocked makes the set of running tickers match the state: one
// per running counter, none otherwise. A running ticker is replaced so its
// phase lines up with the latest sync epoch.
func (t *Tracker) syncTickersLocked() {
	if t.state.isClockedIn {
		t.startTickerLocked(attendanceCounter)
	} else {
		t.stopTickerLocked(attendanceCounter)
	}
	if t.state.activeTask != nil {
		t.startTickerLocked(taskCounter)
	} else {
		t.stopTickerLocked(taskCounter)
	}
}

func (t *Tracker) startTickerLocked(c counter) {
	t.stopTickerLocked(c)
	if t.closed {
		return
	}

	tk := &ticker{t: t.clock.NewTicker(tickInterval), done: make(chan struct{})}
	t.tickers[c] = tk

	go func() {
		for {
			select {
			case <-tk.done:
				return
			case <-tk.t.Chan():
				t.tick(c)
			}
		}
	}()
}

func (t *Tracker) stopTickerLocked(c counter) {
	tk, ok := t.tickers[c]
	if !ok {
		return
	}
	tk.t.Stop()
	close(tk.done)
	delete(t.tickers, c)
}

func (t *Tracker) tick(c counter) {
	t.mu.Lock()
	running := t.state.isClockedIn
	if c == taskCounter {
		running = t.state.activeTask != nil
	}
	if !running {
		t.mu.Unlock()
		return
	}
	snap := t.state.snapshot(t.clock.Now())
	t.mu.Unlock()

	t.publish(EventTick, snap)
}

func (t *Tracker) tickerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tickers)
}

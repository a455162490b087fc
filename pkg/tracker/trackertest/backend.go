// Package trackertest provides an in-memory backend for exercising a
// tracker without a server.
package trackertest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/workforce/tracker/pkg/api"
)

// SessionExpired is the error the backend returns for a revoked session
var SessionExpired = &api.APIError{Code: "unauthorized", Message: "Session expired", StatusCode: http.StatusUnauthorized}

// Rejected builds a 400 error with the given detail
func Rejected(detail string) error {
	return &api.APIError{Code: "bad_request", Message: detail, StatusCode: http.StatusBadRequest}
}

// Backend simulates the attendance and task endpoints against a clock. The
// error fields, when set, are returned by the matching call.
type Backend struct {
	mu    sync.Mutex
	clock clockwork.Clock

	running  bool
	worked   int
	runStart time.Time
	task     *api.Task

	AttendanceErr error
	TaskErr       error
	ClockInErr    error
	ClockOutErr   error
	StartErr      error
	StopErr       error

	// ClockInGate, when non-nil, blocks ClockIn until it is closed
	ClockInGate chan struct{}

	attendanceHold *hold
	taskHold       *hold

	calls []string
}

// hold parks one read after it has taken its answer
type hold struct {
	held    chan struct{}
	release chan struct{}
}

func newHold() *hold {
	return &hold{held: make(chan struct{}), release: make(chan struct{})}
}

func (h *hold) wait(ctx context.Context) error {
	close(h.held)
	select {
	case <-h.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HoldAttendance makes the next ActiveAttendance read its answer and then
// wait for release. held is closed once that call is waiting.
func (b *Backend) HoldAttendance() (held <-chan struct{}, release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attendanceHold = newHold()
	h := b.attendanceHold
	return h.held, func() { close(h.release) }
}

// HoldTask is HoldAttendance for ActiveTask
func (b *Backend) HoldTask() (held <-chan struct{}, release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.taskHold = newHold()
	h := b.taskHold
	return h.held, func() { close(h.release) }
}

// NewBackend returns a backend with no attendance today
func NewBackend(clock clockwork.Clock) *Backend {
	return &Backend{clock: clock}
}

// SetAttendance makes the server report worked seconds with the session
// running or not, as of the clock's now
func (b *Backend) SetAttendance(running bool, worked int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = running
	b.worked = worked
	b.runStart = b.clock.Now()
}

// SetTask installs the server-side active task, or clears it with nil
func (b *Backend) SetTask(task *api.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.task = task.Clone()
}

// Calls returns the mutating calls made so far, in order
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *Backend) workedLocked() int {
	if !b.running {
		return b.worked
	}
	return b.worked + int(b.clock.Since(b.runStart)/time.Second)
}

func (b *Backend) ActiveAttendance(ctx context.Context) (*api.AttendanceStatus, error) {
	b.mu.Lock()
	if b.AttendanceErr != nil {
		b.mu.Unlock()
		return nil, b.AttendanceErr
	}
	status := &api.AttendanceStatus{IsRunning: b.running, WorkedSeconds: b.workedLocked()}
	h := b.attendanceHold
	b.attendanceHold = nil
	b.mu.Unlock()

	if h != nil {
		if err := h.wait(ctx); err != nil {
			return nil, err
		}
	}
	return status, nil
}

func (b *Backend) ActiveTask(ctx context.Context) (*api.Task, error) {
	b.mu.Lock()
	if b.TaskErr != nil {
		b.mu.Unlock()
		return nil, b.TaskErr
	}
	task := b.task.Clone()
	h := b.taskHold
	b.taskHold = nil
	b.mu.Unlock()

	if h != nil {
		if err := h.wait(ctx); err != nil {
			return nil, err
		}
	}
	return task, nil
}

func (b *Backend) ClockIn(ctx context.Context) (*api.ClockInResponse, error) {
	b.mu.Lock()
	b.calls = append(b.calls, "clock_in")
	gate := b.ClockInGate
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ClockInErr != nil {
		return nil, b.ClockInErr
	}
	if b.running {
		return nil, Rejected("Already clocked in")
	}
	b.running = true
	b.runStart = b.clock.Now()
	worked := b.worked
	return &api.ClockInResponse{WorkedSeconds: &worked}, nil
}

func (b *Backend) ClockOut(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "clock_out")
	if b.ClockOutErr != nil {
		return b.ClockOutErr
	}
	if !b.running {
		return Rejected("Not clocked in")
	}
	b.worked = b.workedLocked()
	b.running = false
	// clocking out ends any running work log
	b.task = nil
	return nil
}

func (b *Backend) StartTask(ctx context.Context, taskID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "start_task")
	if b.StartErr != nil {
		return b.StartErr
	}
	if !b.running {
		return Rejected("Clock in first")
	}
	if b.task != nil {
		return Rejected("Another task is already running")
	}
	now := b.clock.Now()
	b.task = &api.Task{ID: taskID, Title: "Task", StartTime: &now}
	return nil
}

func (b *Backend) StopTask(ctx context.Context, taskID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "stop_task")
	if b.StopErr != nil {
		return b.StopErr
	}
	if b.task == nil || b.task.ID != taskID {
		return Rejected("Task not running")
	}
	b.task = nil
	return nil
}

package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/workforce/tracker/pkg/api"
	"github.com/workforce/tracker/pkg/hours"
	"github.com/workforce/tracker/pkg/logger"
)

var (
	ErrBusy             = errors.New("another request for this action is in flight")
	ErrBreakTime        = errors.New("actions are disabled during the break (1PM-2PM IST)")
	ErrClosed           = errors.New("office is closed, clocking is disabled after 6PM IST; ask an administrator to close an open session")
	ErrAlreadyClockedIn = errors.New("already clocked in")
	ErrNotClockedIn     = errors.New("not clocked in")
	ErrTaskRunning      = errors.New("a task is already running")
	ErrNoActiveTask     = errors.New("no task is running")
	ErrSessionInvalid   = errors.New("session is no longer valid")
)

func clockGate(now time.Time) error {
	switch hours.At(now) {
	case hours.Break:
		return ErrBreakTime
	case hours.Closed:
		return ErrClosed
	}
	return nil
}

func taskGate(now time.Time) error {
	if !hours.At(now).TaskAllowed() {
		return ErrBreakTime
	}
	return nil
}

// ClockIn starts today's attendance. On success the attendance counter
// restarts from the server's worked total and a reconciliation follows.
func (t *Tracker) ClockIn(ctx context.Context) error {
	t.mu.Lock()
	now := t.clock.Now()
	switch {
	case t.state.clockBusy:
		t.mu.Unlock()
		return ErrBusy
	case t.state.isClockedIn:
		t.mu.Unlock()
		return ErrAlreadyClockedIn
	}
	if err := clockGate(now); err != nil {
		t.mu.Unlock()
		return err
	}
	t.state.clockBusy = true
	busy := t.state.snapshot(now)
	t.mu.Unlock()

	t.publish(EventBusy, busy)
	defer t.finish(&t.state.clockBusy)

	resp, err := t.backend.ClockIn(ctx)
	if err != nil {
		return t.actionFailed(ctx, "clock in", err)
	}

	t.mu.Lock()
	now = t.clock.Now()
	t.state.isClockedIn = true
	t.state.lastServerSeconds = max(resp.Seconds(), 0)
	t.state.lastSyncEpoch = now
	t.syncTickersLocked()
	snap := t.state.snapshot(now)
	t.mu.Unlock()

	logger.Info("Clocked in", "worked_seconds", snap.AttendanceSeconds)
	t.publish(EventStateChanged, snap)
	t.reconcileAfter(ctx)
	return nil
}

// ClockOut stops the running task, if any, then ends attendance. A failure
// to stop the task does not prevent clocking out.
func (t *Tracker) ClockOut(ctx context.Context) error {
	t.mu.Lock()
	now := t.clock.Now()
	switch {
	case t.state.clockBusy:
		t.mu.Unlock()
		return ErrBusy
	case !t.state.isClockedIn:
		t.mu.Unlock()
		return ErrNotClockedIn
	}
	if err := clockGate(now); err != nil {
		t.mu.Unlock()
		return err
	}
	t.state.clockBusy = true
	task := t.state.activeTask.Clone()
	busy := t.state.snapshot(now)
	t.mu.Unlock()

	t.publish(EventBusy, busy)
	defer t.finish(&t.state.clockBusy)

	if task != nil {
		if err := t.backend.StopTask(ctx, task.ID); err != nil {
			if api.IsSessionInvalid(err) {
				return t.sessionInvalid(err)
			}
			logger.Warn("Stopping task before clock-out failed", "task_id", task.ID, "error", err)
		}
	}

	if err := t.backend.ClockOut(ctx); err != nil {
		return t.actionFailed(ctx, "clock out", err)
	}

	t.mu.Lock()
	now = t.clock.Now()
	t.state.isClockedIn = false
	t.state.lastServerSeconds = 0
	t.state.lastSyncEpoch = now
	t.state.setTask(nil, now)
	t.syncTickersLocked()
	snap := t.state.snapshot(now)
	t.mu.Unlock()

	logger.Info("Clocked out")
	t.publish(EventStateChanged, snap)
	t.reconcileAfter(ctx)
	return nil
}

// StartTask starts taskID. The caller must be clocked in and no other task
// may be running.
func (t *Tracker) StartTask(ctx context.Context, taskID int64, title string) error {
	t.mu.Lock()
	now := t.clock.Now()
	switch {
	case t.state.taskBusy:
		t.mu.Unlock()
		return ErrBusy
	case !t.state.isClockedIn:
		t.mu.Unlock()
		return ErrNotClockedIn
	case t.state.activeTask != nil:
		t.mu.Unlock()
		return ErrTaskRunning
	}
	if err := taskGate(now); err != nil {
		t.mu.Unlock()
		return err
	}
	t.state.taskBusy = true
	busy := t.state.snapshot(now)
	t.mu.Unlock()

	t.publish(EventBusy, busy)
	defer t.finish(&t.state.taskBusy)

	if err := t.backend.StartTask(ctx, taskID); err != nil {
		return t.actionFailed(ctx, "start task", err)
	}

	t.mu.Lock()
	now = t.clock.Now()
	started := now
	t.state.activeTask = &api.Task{ID: taskID, Title: title, StartTime: &started}
	t.state.lastTaskSeconds = 0
	t.state.taskSyncEpoch = now
	t.syncTickersLocked()
	snap := t.state.snapshot(now)
	t.mu.Unlock()

	logger.Info("Task started", "task_id", taskID)
	t.publish(EventStateChanged, snap)
	t.reconcileAfter(ctx)
	return nil
}

// StopTask stops the running task
func (t *Tracker) StopTask(ctx context.Context) error {
	t.mu.Lock()
	now := t.clock.Now()
	switch {
	case t.state.taskBusy:
		t.mu.Unlock()
		return ErrBusy
	case t.state.activeTask == nil:
		t.mu.Unlock()
		return ErrNoActiveTask
	}
	if err := taskGate(now); err != nil {
		t.mu.Unlock()
		return err
	}
	t.state.taskBusy = true
	taskID := t.state.activeTask.ID
	busy := t.state.snapshot(now)
	t.mu.Unlock()

	t.publish(EventBusy, busy)
	defer t.finish(&t.state.taskBusy)

	if err := t.backend.StopTask(ctx, taskID); err != nil {
		return t.actionFailed(ctx, "stop task", err)
	}

	t.mu.Lock()
	now = t.clock.Now()
	t.state.setTask(nil, now)
	t.syncTickersLocked()
	snap := t.state.snapshot(now)
	t.mu.Unlock()

	logger.Info("Task stopped", "task_id", taskID)
	t.publish(EventStateChanged, snap)
	t.reconcileAfter(ctx)
	return nil
}

// actionFailed reconciles after a rejected action so local state matches
// whatever the server did. A session failure skips the reconciliation.
func (t *Tracker) actionFailed(ctx context.Context, action string, err error) error {
	if api.IsSessionInvalid(err) {
		return t.sessionInvalid(err)
	}
	logger.Warn("Action rejected", "action", action, "error", err)
	t.reconcileAfter(ctx)
	return fmt.Errorf("%s: %w", action, err)
}

func (t *Tracker) reconcileAfter(ctx context.Context) {
	if err := t.Refresh(ctx); err != nil {
		logger.Debug("Reconciliation after action failed", "error", err)
	}
}

// finish clears an in-flight flag and publishes the result
func (t *Tracker) finish(flag *bool) {
	t.mu.Lock()
	*flag = false
	snap := t.state.snapshot(t.clock.Now())
	t.mu.Unlock()

	t.publish(EventBusy, snap)
}

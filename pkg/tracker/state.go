package tracker

import (
	"time"

	"github.com/workforce/tracker/pkg/api"
)

// state is the tracker's record of the latest known truth. Displayed
// counters are never stored: they are derived from a server base and the
// instant that base was captured.
type state struct {
	isClockedIn       bool
	lastServerSeconds int
	lastSyncEpoch     time.Time

	activeTask      *api.Task
	lastTaskSeconds int
	taskSyncEpoch   time.Time

	clockBusy bool
	taskBusy  bool

	// stale is set while the state comes from the snapshot cache and no
	// reconciliation has completed yet
	stale  bool
	synced bool
}

// elapsedSeconds is floor((now-from)/1s), clamped at zero so a clock that
// steps backwards freezes the counter instead of rewinding it.
func elapsedSeconds(from, now time.Time) int {
	if from.IsZero() {
		return 0
	}
	d := now.Sub(from)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

func (s *state) attendanceAt(now time.Time) int {
	if !s.isClockedIn {
		return s.lastServerSeconds
	}
	return s.lastServerSeconds + elapsedSeconds(s.lastSyncEpoch, now)
}

func (s *state) taskAt(now time.Time) int {
	if s.activeTask == nil {
		return 0
	}
	return s.lastTaskSeconds + elapsedSeconds(s.taskSyncEpoch, now)
}

// reconcileTaskSeconds picks the task counter after a sync. The server's
// worked total can undercount after pause/resume, so wall time since
// start_time is a floor.
func reconcileTaskSeconds(task *api.Task, now time.Time) int {
	if task.StartTime == nil {
		if task.WorkedSeconds != nil {
			return max(*task.WorkedSeconds, 0)
		}
		return 0
	}

	elapsed := elapsedSeconds(*task.StartTime, now)
	worked := elapsed
	if task.WorkedSeconds != nil {
		worked = *task.WorkedSeconds
	}
	return max(worked, elapsed)
}

// applySync replaces local estimates with a fresh server view. taskKnown is
// false when the task fetch failed, in which case the task fields keep their
// previous values.
func (s *state) applySync(att *api.AttendanceStatus, task *api.Task, taskKnown bool, now time.Time) {
	s.isClockedIn = att.IsRunning
	s.lastServerSeconds = max(att.WorkedSeconds, 0)
	s.lastSyncEpoch = now
	s.synced = true
	s.stale = false

	if !taskKnown {
		return
	}
	s.setTask(task, now)
}

// setTask installs task as the active one, or clears it. Clearing resets the
// task counter to zero.
func (s *state) setTask(task *api.Task, now time.Time) {
	s.taskSyncEpoch = now
	if task == nil {
		s.activeTask = nil
		s.lastTaskSeconds = 0
		return
	}
	s.activeTask = task.Clone()
	s.lastTaskSeconds = reconcileTaskSeconds(task, now)
}

func (s *state) snapshot(now time.Time) Snapshot {
	return Snapshot{
		IsClockedIn:       s.isClockedIn,
		ActiveTask:        s.activeTask.Clone(),
		AttendanceSeconds: s.attendanceAt(now),
		TaskSeconds:       s.taskAt(now),
		LastSync:          s.lastSyncEpoch,
		At:                now,
		ClockBusy:         s.clockBusy,
		TaskBusy:          s.taskBusy,
		Stale:             s.stale,
	}
}

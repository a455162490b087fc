package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jonboulle/clockwork"
	"github.com/workforce/tracker/pkg/api"
	"github.com/workforce/tracker/pkg/auth"
	"github.com/workforce/tracker/pkg/display"
	apperrors "github.com/workforce/tracker/pkg/errors"
	"github.com/workforce/tracker/pkg/logger"
	"github.com/workforce/tracker/pkg/output"
	"github.com/workforce/tracker/pkg/prompter"
	"github.com/workforce/tracker/pkg/tracker"
)

// TrackerService runs attendance and task commands for the logged-in user
type TrackerService struct {
	clock  clockwork.Clock
	prompt *prompter.Prompter
}

// NewTrackerService creates a new tracker service
func NewTrackerService() *TrackerService {
	return &TrackerService{
		clock:  clockwork.NewRealClock(),
		prompt: prompter.Default(),
	}
}

// load opens the session and reconciles a tracker once. The caller closes
// the tracker.
func (s *TrackerService) load(ctx context.Context) (*session, *tracker.Tracker, error) {
	sess, err := openSession()
	if err != nil {
		return nil, nil, err
	}

	trk := sess.newTracker(s.clock)
	if err := trk.Refresh(ctx); err != nil {
		trk.Close()
		return nil, nil, err
	}
	return sess, trk, nil
}

// Status prints today's attendance and the running task
func (s *TrackerService) Status(ctx context.Context) error {
	sess, trk, err := s.load(ctx)
	if err != nil {
		return err
	}
	defer trk.Close()

	snap := trk.Snapshot()
	sess.remember(snap)
	return printStatus(snap)
}

// ClockIn starts attendance for today
func (s *TrackerService) ClockIn(ctx context.Context) error {
	sess, trk, err := s.load(ctx)
	if err != nil {
		return err
	}
	defer trk.Close()

	if err := trk.ClockIn(ctx); err != nil {
		return err
	}

	snap := trk.Snapshot()
	sess.remember(snap)
	output.PrintSuccess("Clocked in at %s", formatClock(s.clock.Now()))
	return printStatus(snap)
}

// ClockOut ends attendance, stopping the running task first
func (s *TrackerService) ClockOut(ctx context.Context) error {
	sess, trk, err := s.load(ctx)
	if err != nil {
		return err
	}
	defer trk.Close()

	if task := trk.Snapshot().ActiveTask; task != nil {
		output.PrintInfo("Stopping %s first", taskLabel(task))
	}
	if err := trk.ClockOut(ctx); err != nil {
		return err
	}

	snap := trk.Snapshot()
	sess.remember(snap)
	output.PrintSuccess("Clocked out at %s", formatClock(s.clock.Now()))
	return printStatus(snap)
}

// StartTask starts taskID. A zero id prompts for one of the open assigned
// tasks.
func (s *TrackerService) StartTask(ctx context.Context, taskID int64) error {
	sess, trk, err := s.load(ctx)
	if err != nil {
		return err
	}
	defer trk.Close()

	tasks, err := sess.api.ListTasks(ctx)
	if err != nil {
		if taskID == 0 {
			return fmt.Errorf("failed to list tasks: %w", err)
		}
		logger.Warn("Could not list tasks, starting without a title", "error", err)
	}

	var title string
	if taskID == 0 {
		task, err := s.pickTask(openTasks(tasks))
		if err != nil {
			return err
		}
		taskID, title = task.ID, task.Title
	} else {
		for _, t := range tasks {
			if t.ID == taskID {
				title = t.Title
				break
			}
		}
	}

	if err := trk.StartTask(ctx, taskID, title); err != nil {
		if api.IsNotFound(err) {
			return apperrors.NotFoundError("Task", strconv.FormatInt(taskID, 10))
		}
		return err
	}

	snap := trk.Snapshot()
	sess.remember(snap)
	output.PrintSuccess("Started %s", taskLabel(snap.ActiveTask))
	return nil
}

// StopTask stops the running task
func (s *TrackerService) StopTask(ctx context.Context) error {
	sess, trk, err := s.load(ctx)
	if err != nil {
		return err
	}
	defer trk.Close()

	task := trk.Snapshot().ActiveTask
	if err := trk.StopTask(ctx); err != nil {
		return err
	}

	sess.remember(trk.Snapshot())
	output.PrintSuccess("Stopped %s", taskLabel(task))
	return nil
}

// ActiveTask prints the running task
func (s *TrackerService) ActiveTask(ctx context.Context) error {
	_, trk, err := s.load(ctx)
	if err != nil {
		return err
	}
	defer trk.Close()

	snap := trk.Snapshot()
	if snap.ActiveTask == nil {
		if output.GetOutputFormat() == output.FormatJSON {
			return output.PrintJSON(nil)
		}
		output.PrintInfo("No task is running")
		return nil
	}

	return output.PrintRecord("Active task", []output.Field{
		{Key: "ID", Value: snap.ActiveTask.ID},
		{Key: "Title", Value: snap.ActiveTask.Title},
		{Key: "Started", Value: startedAt(snap.ActiveTask)},
		{Key: "Elapsed", Value: display.FormatDuration(snap.TaskSeconds)},
	}, snap.ActiveTask)
}

// ListTasks prints the tasks assigned to the user
func (s *TrackerService) ListTasks(ctx context.Context) error {
	sess, err := openSession()
	if err != nil {
		return err
	}

	tasks, err := sess.api.ListTasks(ctx)
	if err != nil {
		return s.checkSession(sess, err)
	}
	return output.PrintList([]string{"ID", "Title", "Status", "Priority", "Due"}, taskRows(tasks), tasks)
}

// Summary prints today's attendance breakdown
func (s *TrackerService) Summary(ctx context.Context) error {
	sess, err := openSession()
	if err != nil {
		return err
	}

	summary, err := sess.api.Summary(ctx)
	if err != nil {
		return s.checkSession(sess, err)
	}

	out := summaryOutput{
		Summary:    *summary,
		Attendance: display.FormatDuration(summary.AttendanceSeconds),
		Task:       display.FormatDuration(summary.TaskSeconds),
		Idle:       display.FormatDuration(summary.IdleSeconds),
		Overtime:   display.FormatDuration(summary.OvertimeSeconds),
	}
	return output.PrintRecord("Today's summary", []output.Field{
		{Key: "Attendance", Value: out.Attendance},
		{Key: "On tasks", Value: out.Task},
		{Key: "Idle", Value: out.Idle},
		{Key: "Overtime", Value: out.Overtime},
	}, out)
}

// checkSession clears the stored session when err is a rejected token
func (s *TrackerService) checkSession(sess *session, err error) error {
	if auth.IsSessionError(err) {
		sess.handler.Invalidate()
		return fmt.Errorf("%w: %s", tracker.ErrSessionInvalid, api.Message(err))
	}
	return err
}

func (s *TrackerService) pickTask(tasks []api.TaskItem) (api.TaskItem, error) {
	if len(tasks) == 0 {
		return api.TaskItem{}, fmt.Errorf("no open tasks are assigned to you")
	}

	options := make([]string, 0, len(tasks))
	for _, t := range tasks {
		options = append(options, fmt.Sprintf("#%d %s", t.ID, t.Title))
	}
	idx, err := s.prompt.Select("Which task?", options)
	if err != nil {
		return api.TaskItem{}, err
	}
	return tasks[idx], nil
}

func openTasks(tasks []api.TaskItem) []api.TaskItem {
	open := make([]api.TaskItem, 0, len(tasks))
	for _, t := range tasks {
		if t.Status != "completed" {
			open = append(open, t)
		}
	}
	return open
}

func startedAt(task *api.Task) string {
	if task.StartTime == nil {
		return "unknown"
	}
	return formatClock(*task.StartTime)
}

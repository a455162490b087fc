package service

import (
	"fmt"
	"time"

	"github.com/workforce/tracker/pkg/api"
	"github.com/workforce/tracker/pkg/display"
	"github.com/workforce/tracker/pkg/hours"
	"github.com/workforce/tracker/pkg/output"
	"github.com/workforce/tracker/pkg/tracker"
)

type meOutput struct {
	UserID              string    `json:"user_id"`
	Email               string    `json:"email"`
	Role                string    `json:"role"`
	ExpiresAt           time.Time `json:"expires_at"`
	ForcePasswordChange bool      `json:"force_password_change"`
}

type statusOutput struct {
	Snapshot tracker.Snapshot `json:"snapshot"`
	View     display.View     `json:"view"`
}

type summaryOutput struct {
	api.Summary
	Attendance string `json:"attendance"`
	Task       string `json:"task"`
	Idle       string `json:"idle"`
	Overtime   string `json:"overtime"`
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.In(hours.IST).Format("15:04:05 MST")
}

func taskLabel(task *api.Task) string {
	if task == nil {
		return "none"
	}
	if task.Title == "" {
		return fmt.Sprintf("#%d", task.ID)
	}
	return fmt.Sprintf("#%d %s", task.ID, task.Title)
}

func printStatus(snap tracker.Snapshot) error {
	v := display.Render(snap)

	return output.PrintRecord("Today", []output.Field{
		{Key: "Status", Value: v.StatusText},
		{Key: "Attendance", Value: v.AttendanceText},
		{Key: "Task", Value: taskLabel(snap.ActiveTask)},
		{Key: "Task time", Value: v.TaskText},
		{Key: "Business hours", Value: v.Window},
		{Key: "Last sync", Value: formatClock(snap.LastSync)},
	}, statusOutput{Snapshot: snap, View: v})
}

func optional(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func taskRows(tasks []api.TaskItem) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			fmt.Sprintf("%d", t.ID),
			t.Title,
			t.Status,
			optional(t.Priority),
			optional(t.DueDate),
		})
	}
	return rows
}

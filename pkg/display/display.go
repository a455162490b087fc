// Package display projects a tracker snapshot onto timer text and button
// labels, applying the business-hours rules.
package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/workforce/tracker/pkg/hours"
	"github.com/workforce/tracker/pkg/tracker"
)

const (
	LabelClockIn   = "Clock In"
	LabelClockOut  = "Clock Out"
	LabelStartTask = "Start Task"
	LabelStopTask  = "Stop Task"

	StatusClockedIn  = "Clocked In"
	StatusClockedOut = "Clocked Out"
	StatusBreak      = "On Break"
	StatusClosed     = "Office Closed"
)

// Button is a labelled action and whether it may be pressed
type Button struct {
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

// View is everything a client draws for one frame
type View struct {
	AttendanceText string `json:"attendance"`
	TaskText       string `json:"task"`
	TaskTitle      string `json:"task_title,omitempty"`
	StatusText     string `json:"status"`
	Window         string `json:"window"`
	Clock          Button `json:"clock_button"`
	Task           Button `json:"task_button"`
	Stale          bool   `json:"stale,omitempty"`
}

// FormatDuration renders seconds as HH:MM:SS. Hours grow past two digits
// rather than wrapping.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}

// Render builds the view for snap using the business-hours window at
// snap.At
func Render(snap tracker.Snapshot) View {
	v := View{
		AttendanceText: FormatDuration(snap.AttendanceSeconds),
		TaskText:       FormatDuration(snap.TaskSeconds),
		StatusText:     StatusClockedOut,
		Clock:          Button{Label: LabelClockIn, Enabled: !snap.ClockBusy},
		Task:           Button{Label: LabelStartTask, Enabled: !snap.TaskBusy},
		Stale:          snap.Stale,
	}
	if snap.IsClockedIn {
		v.StatusText = StatusClockedIn
		v.Clock.Label = LabelClockOut
	}
	if snap.ActiveTask != nil {
		v.TaskTitle = snap.ActiveTask.Title
		v.Task.Label = LabelStopTask
	} else if !snap.IsClockedIn {
		v.Task.Enabled = false
	}

	// gate rules override everything above
	window := hours.At(snap.At)
	v.Window = window.String()
	switch window {
	case hours.Break:
		v.StatusText = StatusBreak
	case hours.Closed:
		v.StatusText = StatusClosed
	}
	if !window.ClockAllowed() {
		v.Clock.Enabled = false
	}
	if !window.TaskAllowed() {
		v.Task.Enabled = false
	}
	return v
}

var (
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	timerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	breakStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFA500"))
	closedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	buttonStyle   = lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("#4A90E2")).Foreground(lipgloss.Color("#FFFFFF"))
	disabledStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#666666"))
	staleStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#666666"))
)

func button(b Button) string {
	if b.Enabled {
		return buttonStyle.Render(b.Label)
	}
	return disabledStyle.Render(b.Label)
}

// Line renders v as a single terminal line
func Line(v View) string {
	status := idleStyle
	switch v.StatusText {
	case StatusClockedIn:
		status = timerStyle
	case StatusBreak:
		status = breakStyle
	case StatusClosed:
		status = closedStyle
	}

	task := labelStyle.Render("Task") + " " + timerStyle.Render(v.TaskText)
	if v.TaskTitle != "" {
		task += " " + labelStyle.Render("("+v.TaskTitle+")")
	}

	parts := []string{
		status.Render(v.StatusText),
		labelStyle.Render("Attendance") + " " + timerStyle.Render(v.AttendanceText),
		task,
		button(v.Clock),
		button(v.Task),
	}
	if v.Stale {
		parts = append(parts, staleStyle.Render("syncing"))
	}
	return strings.Join(parts, "  ")
}

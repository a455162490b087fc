package api

import (
	"fmt"
	"strings"
	"time"
)

// wireTask accepts both shapes the backend has returned for the active task:
// {id, title, ...} and {task_id, task_title, start_time}.
type wireTask struct {
	ID            *int64  `json:"id"`
	TaskID        *int64  `json:"task_id"`
	Title         string  `json:"title"`
	TaskTitle     string  `json:"task_title"`
	StartTime     *string `json:"start_time"`
	WorkedSeconds *int    `json:"worked_seconds"`
	TotalSeconds  *int    `json:"total_seconds"`
}

// Timestamps come from Python isoformat(), with or without an offset.
// Zone-less values are UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// normalizeTask maps either wire shape into Task. It returns nil for a
// payload that names no task.
func normalizeTask(w *wireTask) (*Task, error) {
	if w == nil {
		return nil, nil
	}

	task := &Task{}
	switch {
	case w.ID != nil:
		task.ID = *w.ID
	case w.TaskID != nil:
		task.ID = *w.TaskID
	default:
		return nil, nil
	}

	task.Title = w.Title
	if task.Title == "" {
		task.Title = w.TaskTitle
	}

	if w.StartTime != nil && *w.StartTime != "" {
		st, err := parseTimestamp(*w.StartTime)
		if err != nil {
			return nil, err
		}
		task.StartTime = &st
	}

	switch {
	case w.WorkedSeconds != nil:
		ws := *w.WorkedSeconds
		task.WorkedSeconds = &ws
	case w.TotalSeconds != nil:
		ts := *w.TotalSeconds
		task.WorkedSeconds = &ts
	}

	return task, nil
}

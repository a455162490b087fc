package api

import "time"

// Auth

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken         string `json:"access_token"`
	Role                string `json:"role"`
	ForcePasswordChange bool   `json:"force_password_change"`
}

// Attendance

// AttendanceStatus is the body of GET /attendance/active. A user with no
// attendance row today gets only worked_seconds.
type AttendanceStatus struct {
	IsRunning     bool `json:"is_running"`
	WorkedSeconds int  `json:"worked_seconds"`
}

// ClockInResponse carries the attendance row returned by clock-in. Older
// backends report the carried total as total_seconds.
type ClockInResponse struct {
	WorkedSeconds *int `json:"worked_seconds"`
	TotalSeconds  *int `json:"total_seconds"`
}

// Seconds is the attendance total the session resumes from
func (r *ClockInResponse) Seconds() int {
	switch {
	case r == nil:
		return 0
	case r.WorkedSeconds != nil:
		return *r.WorkedSeconds
	case r.TotalSeconds != nil:
		return *r.TotalSeconds
	default:
		return 0
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Summary is today's attendance breakdown from GET /attendance/summary
type Summary struct {
	AttendanceSeconds int `json:"attendance_seconds"`
	TaskSeconds       int `json:"task_seconds"`
	IdleSeconds       int `json:"idle_seconds"`
	OvertimeSeconds   int `json:"overtime_seconds"`
}

// Tasks

// Task is the canonical active task. wireTask is mapped into it by
// normalizeTask.
type Task struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	StartTime     *time.Time `json:"start_time,omitempty"`
	WorkedSeconds *int       `json:"worked_seconds,omitempty"`
}

// Clone returns a deep copy so callers never share pointers with the store
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.StartTime != nil {
		st := *t.StartTime
		c.StartTime = &st
	}
	if t.WorkedSeconds != nil {
		ws := *t.WorkedSeconds
		c.WorkedSeconds = &ws
	}
	return &c
}

// TaskItem is an assigned task from GET /tasks/
type TaskItem struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	Description    *string  `json:"description"`
	Status         string   `json:"status"`
	DueDate        *string  `json:"due_date"`
	Priority       *string  `json:"priority"`
	EstimatedHours *float64 `json:"estimated_hours"`
}

package api

import (
	"context"

	"github.com/workforce/tracker/pkg/logger"
)

// ActiveAttendance returns today's attendance counter and whether a session is open
func (c *Client) ActiveAttendance(ctx context.Context) (*AttendanceStatus, error) {
	var status AttendanceStatus
	if err := c.get(ctx, "/attendance/active", &status); err != nil {
		return nil, err
	}

	logger.Debug("Attendance fetched", "running", status.IsRunning, "worked_seconds", status.WorkedSeconds)
	return &status, nil
}

// ClockIn opens an attendance session
func (c *Client) ClockIn(ctx context.Context) (*ClockInResponse, error) {
	logger.Debug("Clocking in")

	var result ClockInResponse
	if err := c.post(ctx, "/attendance/clock-in", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ClockOut closes the open attendance session
func (c *Client) ClockOut(ctx context.Context) error {
	logger.Debug("Clocking out")

	var result MessageResponse
	return c.post(ctx, "/attendance/clock-out", nil, &result)
}

// Summary returns today's attendance, task, idle and overtime totals
func (c *Client) Summary(ctx context.Context) (*Summary, error) {
	var summary Summary
	if err := c.get(ctx, "/attendance/summary", &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

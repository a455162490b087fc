package api

import (
	"context"

	json "github.com/json-iterator/go"
	"github.com/workforce/tracker/pkg/logger"
)

// ActiveTask returns the running task, or nil when there is none. The
// backend answers null for "no task"; a 404 is treated the same way.
func (c *Client) ActiveTask(ctx context.Context) (*Task, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/tasks/active")
	if err := CheckResponse(resp, err); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	body := resp.Body()
	if len(body) == 0 {
		return nil, nil
	}

	var w *wireTask
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, err
	}

	task, err := normalizeTask(w)
	if err != nil {
		return nil, err
	}
	if task != nil {
		logger.Debug("Active task fetched", "task_id", task.ID, "title", task.Title)
	}
	return task, nil
}

// ListTasks returns the tasks assigned to the current user
func (c *Client) ListTasks(ctx context.Context) ([]TaskItem, error) {
	var tasks []TaskItem
	if err := c.get(ctx, "/tasks/", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// StartTask starts the time log for taskID
func (c *Client) StartTask(ctx context.Context, taskID int64) error {
	logger.Debug("Starting task", "task_id", taskID)

	var result MessageResponse
	return c.post(ctx, taskPath(taskID, "start"), nil, &result)
}

// StopTask closes the running time log for taskID
func (c *Client) StopTask(ctx context.Context, taskID int64) error {
	logger.Debug("Stopping task", "task_id", taskID)

	var result MessageResponse
	return c.post(ctx, taskPath(taskID, "stop"), nil, &result)
}

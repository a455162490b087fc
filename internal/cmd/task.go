package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	apperrors "github.com/workforce/tracker/pkg/errors"
	"github.com/workforce/tracker/pkg/service"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Task timing commands",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks assigned to you",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewTrackerService().ListTasks(cmd.Context())
	},
}

var taskActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "Show the running task",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewTrackerService().ActiveTask(cmd.Context())
	},
}

var taskStartCmd = &cobra.Command{
	Use:   "start [task-id]",
	Short: "Start timing a task",
	Long:  "Start timing a task. Without an id you pick one of your open tasks.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var taskID int64
		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return apperrors.ValidationError("task-id", fmt.Sprintf("%q is not a positive number", args[0]))
			}
			taskID = id
		}
		return service.NewTrackerService().StartTask(cmd.Context(), taskID)
	},
}

var taskStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running task",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewTrackerService().StopTask(cmd.Context())
	},
}

func init() {
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskActiveCmd)
	taskCmd.AddCommand(taskStartCmd)
	taskCmd.AddCommand(taskStopCmd)
}

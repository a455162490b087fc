package cmd

import (
	"github.com/spf13/cobra"
	"github.com/workforce/tracker/pkg/service"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's attendance and the running task",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewTrackerService().Status(cmd.Context())
	},
}

var clockCmd = &cobra.Command{
	Use:   "clock",
	Short: "Attendance commands",
}

var clockInCmd = &cobra.Command{
	Use:   "in",
	Short: "Clock in for today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewTrackerService().ClockIn(cmd.Context())
	},
}

var clockOutCmd = &cobra.Command{
	Use:   "out",
	Short: "Clock out, stopping the running task",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewTrackerService().ClockOut(cmd.Context())
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show today's attendance breakdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewTrackerService().Summary(cmd.Context())
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show live timers until interrupted",
	Long: `Keep today's attendance and task timers on screen. Timers tick every
second and are reconciled with the server periodically and whenever the
server pushes an attendance change. Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewTrackerService().Watch(cmd.Context())
	},
}

func init() {
	clockCmd.AddCommand(clockInCmd)
	clockCmd.AddCommand(clockOutCmd)
}

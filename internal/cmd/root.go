package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/workforce/tracker/pkg/client"
	"github.com/workforce/tracker/pkg/config"
	apperrors "github.com/workforce/tracker/pkg/errors"
	"github.com/workforce/tracker/pkg/logger"
	"github.com/workforce/tracker/pkg/output"
)

var (
	verbose    bool
	configPath string
	outputFmt  string
)

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Workforce Tracker - attendance and task time from the terminal",
	Long: `Workforce Tracker clocks you in and out of the HR portal and times
the task you are working on. Counters tick locally and are reconciled
with the server every few seconds.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(configPath); err != nil {
			return fmt.Errorf("error initializing config: %w", err)
		}

		logger.Init(verbose)

		if cmd.Flags().Changed("output") {
			if !output.ValidateOutputFormat(outputFmt) {
				return apperrors.ValidationError("output", fmt.Sprintf("%q is not one of text, json, table", outputFmt))
			}
			config.Set("output.format", outputFmt)
		}

		client.Init()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Close()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		output.PrintFailure(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.config/workforce/tracker/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "Output format: text, json, table")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(clockCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hive",
	Short: "Multi-agent task orchestrator with adaptive routing",
	Long: `Hive routes work requests to specialized agents and learns from every
execution: success rates and durations per (category, agent) pair bias
future assignment toward the pairings that historically perform best.

With no arguments, launches interactive mode with a persistent dashboard
where you can type commands in plain text and watch tasks execute.

Core capabilities:
- Capability-based dispatch with per-agent concurrency limits
- Free-text commands resolved through an ordered intent rule table
- Exponential-backoff retry with a bounded attempt count
- Epsilon-greedy agent selection fed by learned execution statistics
- Snapshot/restore of the learned pattern table and task history`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <command text>",
	Short: "Run a free-text command through the intent path",
	Long: `Parse a plain-text command into an intent, create the matching task,
route it to the best agent, and wait for the result.

Examples:
  hive run "analyze code in src/"
  hive run "run tests for internal/engine"
  hive run "create a task to clean up stale branches"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		text := strings.Join(args, " ")
		response, err := a.HandleCommand(context.Background(), text)
		if err != nil {
			return err
		}

		fmt.Println(color.GreenString("✓"), response)
		return nil
	},
}

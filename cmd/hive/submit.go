package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/hive/pkg/models"
)

var (
	submitCategory string
	submitPriority int
	submitAsync    bool
)

var submitCmd = &cobra.Command{
	Use:   "submit --category <capability> <payload>",
	Short: "Submit a structured task",
	Long: `Create a task with an explicit category and payload, bypassing the
intent parser. By default the command waits for the terminal state; with
--async it prints the task ID immediately and returns (poll with
'hive status <task-id>').

Examples:
  hive submit --category analyze "src/parser.go"
  hive submit --category shell --priority 5 "go vet ./..."
  hive submit --category test --async "integration suite"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		payload := strings.Join(args, " ")
		taskID, err := a.coord.CreateTask(submitCategory, payload, submitPriority)
		if err != nil {
			return err
		}

		if submitAsync {
			// Fire-and-forget submission; the process stays alive until the
			// task settles, but failures only show up via 'hive status'.
			a.engine.Run(taskID)
			fmt.Printf("task %s submitted\n", shortID(taskID))
			task, err := a.engine.Wait(context.Background(), taskID)
			if err != nil {
				return err
			}
			fmt.Printf("task %s %s\n", shortID(taskID), task.State)
			return nil
		}

		task, err := a.engine.AssignAndRun(context.Background(), taskID)
		if err != nil {
			return err
		}

		if task.State == models.TaskStateCompleted {
			fmt.Println(color.GreenString("✓"), fmt.Sprintf("task %s completed: %s", shortID(taskID), task.Result))
			return nil
		}
		return fmt.Errorf("task %s failed (%s): %s", shortID(taskID), task.FailReason, task.Error)
	},
}

func init() {
	submitCmd.Flags().StringVarP(&submitCategory, "category", "c", "general", "Capability category the task requires")
	submitCmd.Flags().IntVarP(&submitPriority, "priority", "p", 0, "Priority (higher runs first under contention)")
	submitCmd.Flags().BoolVar(&submitAsync, "async", false, "Return immediately after submission")
}

package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/hive/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show agents, tasks, and learned statistics",
	Long: `Display the orchestrator's aggregate state: registered agents with
their live load and success rates, task counts by state, and the overall
completion rate.

With a task ID argument, shows that task's detail and its per-attempt
execution history instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			return displayTask(a, args[0])
		}
		displayStatus(a)
		return nil
	},
}

func displayStatus(a *app) {
	s := a.reporter.Snapshot()

	bold := color.New(color.Bold)
	bold.Println("Agents")
	for _, agent := range s.Agents {
		loadColor := color.GreenString
		if agent.CurrentLoad >= agent.MaxConcurrent {
			loadColor = color.RedString
		} else if agent.CurrentLoad > 0 {
			loadColor = color.YellowString
		}
		fmt.Printf("  %-14s %s  caps=[%s]  success %.0f%% (%d/%d)\n",
			agent.ID,
			loadColor("%d/%d", agent.CurrentLoad, agent.MaxConcurrent),
			strings.Join(agent.Capabilities, ","),
			agent.SuccessRate*100,
			agent.Successes, agent.Successes+agent.Failures)
	}

	fmt.Println()
	bold.Println("Tasks")
	fmt.Printf("  total %d  %s %d  %s %d  active %d  completion %.0f%%\n",
		s.TasksTotal,
		color.GreenString("completed"), s.TasksCompleted,
		color.RedString("failed"), s.TasksFailed,
		s.TasksActive,
		s.CompletionRate*100)

	patterns, err := a.reporter.Patterns()
	if err != nil || len(patterns) == 0 {
		return
	}
	fmt.Println()
	bold.Println("Learned patterns")
	for _, p := range patterns {
		fmt.Printf("  %-10s %-14s %d ok / %d failed, avg %s\n",
			p.Category, p.AgentID, p.SuccessCount, p.FailureCount,
			p.AvgDuration.Round(1e6))
	}
}

func displayTask(a *app, taskID string) error {
	task, err := a.coord.Get(taskID)
	if err != nil {
		return err
	}

	stateColor := color.YellowString
	switch task.State {
	case models.TaskStateCompleted:
		stateColor = color.GreenString
	case models.TaskStateFailed:
		stateColor = color.RedString
	}

	fmt.Printf("task %s\n", task.ID)
	fmt.Printf("  category  %s\n", task.Category)
	fmt.Printf("  state     %s\n", stateColor(string(task.State)))
	if task.AssignedTo != "" {
		fmt.Printf("  agent     %s\n", task.AssignedTo)
	}
	fmt.Printf("  attempts  %d\n", task.Attempts)
	if task.Result != "" {
		fmt.Printf("  result    %s\n", task.Result)
	}
	if task.Error != "" {
		fmt.Printf("  error     %s (%s)\n", task.Error, task.FailReason)
	}

	records, err := a.reporter.TaskHistory(taskID)
	if err != nil || len(records) == 0 {
		return nil
	}
	fmt.Println("  history")
	for _, rec := range records {
		mark := color.GreenString("✓")
		if !rec.Success {
			mark = color.RedString("✗")
		}
		fmt.Printf("    %s attempt %d on %s in %s", mark, rec.Attempt, rec.AgentID, rec.Duration.Round(1e6))
		if rec.Error != "" {
			fmt.Printf("  (%s)", rec.Error)
		}
		fmt.Println()
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ShayCichocki/hive/internal/config"
	"github.com/ShayCichocki/hive/internal/coordinator"
	"github.com/ShayCichocki/hive/internal/engine"
	"github.com/ShayCichocki/hive/internal/exec"
	"github.com/ShayCichocki/hive/internal/inference"
	"github.com/ShayCichocki/hive/internal/intent"
	"github.com/ShayCichocki/hive/internal/pattern"
	"github.com/ShayCichocki/hive/internal/registry"
	"github.com/ShayCichocki/hive/internal/report"
	"github.com/ShayCichocki/hive/pkg/models"
)

// app wires the full orchestration stack for a single process: config,
// pattern store, registry, coordinator, engine, parser, and reporter.
type app struct {
	cfg      *config.Config
	sqlStore *pattern.SQLiteStore
	store    pattern.Store
	registry *registry.Registry
	coord    *coordinator.Coordinator
	engine   *engine.Engine
	reporter *report.Reporter
	parser   *intent.Parser
	logger   *coordinator.DebugLogger
	cancel   context.CancelFunc
}

// buildApp assembles the stack, registers the built-in agent fleet, and
// starts the engine's background loops.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	logger := coordinator.NewDebugLoggerForProject(cwd)

	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = config.ProjectStorePath(cwd)
	}
	sqlStore, err := pattern.OpenSQLite(dbPath, cfg.Learning.Alpha)
	if err != nil {
		return nil, fmt.Errorf("open pattern store: %w", err)
	}
	// Statistics failures degrade to zero patterns; routing never blocks on them.
	store := pattern.NewDegrading(sqlStore, logger.Log)

	reg := registry.New(store)
	selector := engine.NewEpsilonGreedy(cfg.Learning.Epsilon, time.Now().UnixNano())

	coord := coordinator.New(coordinator.Options{
		Registry:    reg,
		Store:       store,
		Selector:    selector.Select,
		MaxRetries:  cfg.Retry.MaxRetries,
		BackoffBase: cfg.Retry.BackoffBase,
		BackoffCap:  cfg.Retry.BackoffCap,
		Logger:      logger,
	})

	eng := engine.New(engine.Options{
		Coordinator: coord,
		Registry:    reg,
		Store:       store,
		HardTimeout: cfg.Execution.HardTimeout,
		Logf:        logger.Log,
	})

	rules := intent.DefaultRules()
	if cfg.Intent.RulesPath != "" {
		loaded, err := intent.LoadRulesFile(cfg.Intent.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("load intent rules: %w", err)
		}
		rules = loaded
	}

	var fallback intent.Inference
	apiKey, _, _ := config.ResolveAPIKey(cfg)
	if apiKey != "" || cfg.Anthropic.UseBedrock {
		client, err := inference.NewClient(inference.ClientConfig{
			APIKey:        apiKey,
			UseAWSBedrock: cfg.Anthropic.UseBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
		})
		if err != nil {
			logger.Log("[app] inference fallback disabled: %v", err)
		} else {
			fallback = client
		}
	}
	parser := intent.NewParser(rules, cfg.Intent.ConfidenceThreshold, fallback)

	a := &app{
		cfg:      cfg,
		sqlStore: sqlStore,
		store:    store,
		registry: reg,
		coord:    coord,
		engine:   eng,
		reporter: report.New(coord, reg, store),
		parser:   parser,
		logger:   logger,
	}
	if err := a.registerFleet(cwd); err != nil {
		sqlStore.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	eng.Start(ctx)

	if cfg.Intent.RulesPath != "" {
		go intent.Watch(ctx, cfg.Intent.RulesPath, parser, logger.Log)
	}

	return a, nil
}

// registerFleet registers the built-in specialist agents. The shell runner
// is backed by real command execution; the specialists run simulated until a
// real backend is wired per category.
func (a *app) registerFleet(workDir string) error {
	fleet := []*models.Agent{
		{ID: "code_analyzer", Name: "Code Analyzer", Capabilities: []string{"analyze"}, MaxConcurrent: 2},
		{ID: "test_runner", Name: "Test Runner", Capabilities: []string{"test"}, MaxConcurrent: 2},
		{ID: "optimizer", Name: "Optimizer", Capabilities: []string{"optimize"}, MaxConcurrent: 2},
		{ID: "monitor", Name: "Monitor", Capabilities: []string{"monitor", "general"}, MaxConcurrent: 2},
		{ID: "shell_runner", Name: "Shell Runner", Capabilities: []string{"shell"}, MaxConcurrent: 2},
	}
	for _, agent := range fleet {
		if err := a.registry.Register(agent); err != nil {
			return fmt.Errorf("register %s: %w", agent.ID, err)
		}
	}

	a.engine.RegisterExecutor("shell_runner", exec.NewShellExecutor(exec.NewRunner(), workDir))
	return nil
}

// Close stops background loops and releases resources.
func (a *app) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	a.sqlStore.Close()
	a.logger.Close()
}

// HandleCommand resolves one free-text command: status and help are answered
// locally, actionable intents become tasks executed synchronously, and
// unmatched input surfaces ErrUnrecognizedCommand without creating a task.
func (a *app) HandleCommand(ctx context.Context, text string) (string, error) {
	in := a.parser.Parse(ctx, text)

	switch in.Action {
	case models.ActionStatus:
		return renderBriefStatus(a.reporter.Snapshot()), nil
	case models.ActionHelp:
		return helpText(), nil
	case models.ActionUnknown:
		return "", fmt.Errorf("%q: %w", text, coordinator.ErrUnrecognizedCommand)
	}

	category, ok := intent.TaskCategory(in)
	if !ok {
		return "", fmt.Errorf("%q: %w", text, coordinator.ErrUnrecognizedCommand)
	}

	payload := in.Entity("target", in.RawText)
	taskID, err := a.coord.CreateTask(category, payload, 0)
	if err != nil {
		return "", err
	}

	task, err := a.engine.AssignAndRun(ctx, taskID)
	if err != nil {
		return "", fmt.Errorf("task %s: %w", shortID(taskID), err)
	}

	if task.State == models.TaskStateCompleted {
		return fmt.Sprintf("task %s completed: %s", shortID(taskID), task.Result), nil
	}
	if errors.Is(taskError(task), coordinator.ErrAgentUnavailable) {
		return "", fmt.Errorf("task %s: %w", shortID(taskID), coordinator.ErrAgentUnavailable)
	}
	return "", fmt.Errorf("task %s failed (%s): %s", shortID(taskID), task.FailReason, task.Error)
}

// taskError maps a terminal task's recorded reason back to the sentinel taxonomy.
func taskError(task *models.Task) error {
	switch task.FailReason {
	case models.FailReasonAgentUnavailable:
		return coordinator.ErrAgentUnavailable
	case models.FailReasonCancelled:
		return coordinator.ErrCancelled
	case models.FailReasonApprovalDenied:
		return coordinator.ErrApprovalDenied
	case models.FailReasonExecutionError:
		return coordinator.ErrExecutionError
	default:
		return nil
	}
}

// shortID truncates a UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func renderBriefStatus(s *report.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d agents, %d tasks (%d done, %d failed, %.0f%% completion)",
		len(s.Agents), s.TasksTotal, s.TasksCompleted, s.TasksFailed, s.CompletionRate*100)
	for _, agent := range s.Agents {
		fmt.Fprintf(&b, "\n  %-14s load %d/%d, success %.0f%%",
			agent.ID, agent.CurrentLoad, agent.MaxConcurrent, agent.SuccessRate*100)
	}
	return b.String()
}

func helpText() string {
	return strings.TrimSpace(`
Available commands:
  analyze code in <path>      analyze a file or directory
  run tests for <target>      execute tests
  generate tests for <target> write tests
  improve code in <path>      optimize or refactor
  create a task to <desc>     queue a free-form task
  status                      show agents and task counts
  help                        show this message`)
}

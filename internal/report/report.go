// Package report aggregates coordinator, registry, and pattern store state
// into read-only status structures for external consumption. Nothing in this
// package mutates the state it reads.
package report

import (
	"fmt"
	"sort"

	"github.com/ShayCichocki/hive/internal/coordinator"
	"github.com/ShayCichocki/hive/internal/pattern"
	"github.com/ShayCichocki/hive/internal/registry"
	"github.com/ShayCichocki/hive/pkg/models"
)

// AgentSummary describes one registered agent with its live load and
// learned success statistics aggregated across categories.
type AgentSummary struct {
	// ID is the agent identifier.
	ID string `json:"id"`
	// Name is the agent's display name.
	Name string `json:"name"`
	// Capabilities is the agent's declared capability set.
	Capabilities []string `json:"capabilities"`
	// CurrentLoad is the number of tasks reserved or executing right now.
	CurrentLoad int `json:"current_load"`
	// MaxConcurrent is the agent's declared capacity.
	MaxConcurrent int `json:"max_concurrent"`
	// TasksCompleted counts tasks the agent finished successfully.
	TasksCompleted int `json:"tasks_completed"`
	// Successes and Failures aggregate pattern counts across categories.
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
	// SuccessRate is Successes / (Successes + Failures), 0.5 when unproven.
	SuccessRate float64 `json:"success_rate"`
}

// Status is the aggregate view returned by the status query.
type Status struct {
	// Agents lists all registered agents in ID order.
	Agents []AgentSummary `json:"agents"`
	// TasksTotal is the size of the task table.
	TasksTotal int `json:"tasks_total"`
	// TasksCompleted counts tasks in the completed state.
	TasksCompleted int `json:"tasks_completed"`
	// TasksFailed counts tasks in the failed state.
	TasksFailed int `json:"tasks_failed"`
	// TasksActive counts tasks not yet terminal.
	TasksActive int `json:"tasks_active"`
	// CompletionRate is TasksCompleted / TasksTotal, 0 with no tasks.
	CompletionRate float64 `json:"completion_rate"`
}

// Reporter builds status views. All methods are safe for concurrent use and
// never write to the structures they read.
type Reporter struct {
	coord *coordinator.Coordinator
	reg   *registry.Registry
	store pattern.Store
}

// New creates a Reporter over the given components.
func New(coord *coordinator.Coordinator, reg *registry.Registry, store pattern.Store) *Reporter {
	return &Reporter{coord: coord, reg: reg, store: store}
}

// Snapshot aggregates the current system state.
func (r *Reporter) Snapshot() *Status {
	counts := r.coord.TasksByState()
	total := 0
	for _, n := range counts {
		total += n
	}
	completed := counts[models.TaskStateCompleted]
	failed := counts[models.TaskStateFailed]

	status := &Status{
		TasksTotal:     total,
		TasksCompleted: completed,
		TasksFailed:    failed,
		TasksActive:    total - completed - failed,
	}
	if total > 0 {
		status.CompletionRate = float64(completed) / float64(total)
	}

	// Pattern store degradation yields empty statistics, not a failed report.
	byAgent := map[string]*AgentSummary{}
	if patterns, err := r.store.All(); err == nil {
		for _, p := range patterns {
			s := byAgent[p.AgentID]
			if s == nil {
				s = &AgentSummary{}
				byAgent[p.AgentID] = s
			}
			s.Successes += p.SuccessCount
			s.Failures += p.FailureCount
		}
	}

	for _, a := range r.reg.AllAgents() {
		summary := AgentSummary{
			ID:             a.ID,
			Name:           a.Name,
			Capabilities:   a.Capabilities,
			CurrentLoad:    r.reg.CurrentLoad(a.ID),
			MaxConcurrent:  a.MaxConcurrent,
			TasksCompleted: a.TasksCompleted,
			SuccessRate:    0.5,
		}
		if s, ok := byAgent[a.ID]; ok {
			summary.Successes = s.Successes
			summary.Failures = s.Failures
			if observed := s.Successes + s.Failures; observed > 0 {
				summary.SuccessRate = float64(s.Successes) / float64(observed)
			}
		}
		status.Agents = append(status.Agents, summary)
	}

	return status
}

// Patterns returns all learned patterns sorted by category, then agent ID.
func (r *Reporter) Patterns() ([]models.Pattern, error) {
	patterns, err := r.store.All()
	if err != nil {
		return nil, fmt.Errorf("load patterns: %v: %w", err, coordinator.ErrPatternStoreUnavailable)
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Category != patterns[j].Category {
			return patterns[i].Category < patterns[j].Category
		}
		return patterns[i].AgentID < patterns[j].AgentID
	})
	return patterns, nil
}

// TaskHistory returns the append-order execution records of a task.
func (r *Reporter) TaskHistory(taskID string) ([]models.ExecutionRecord, error) {
	return r.store.RecordsForTask(taskID)
}

// Tasks returns copies of all tasks, newest first.
func (r *Reporter) Tasks() []*models.Task {
	tasks := r.coord.AllTasks()
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks
}

package report

import (
	"context"
	"testing"
	"time"

	"github.com/ShayCichocki/hive/internal/coordinator"
	"github.com/ShayCichocki/hive/internal/pattern"
	"github.com/ShayCichocki/hive/internal/registry"
	"github.com/ShayCichocki/hive/pkg/models"
)

func setup(t *testing.T) (*Reporter, *coordinator.Coordinator, *registry.Registry, pattern.Store) {
	t.Helper()

	store := pattern.NewMemoryStore(0.2)
	reg := registry.New(store)
	reg.Register(&models.Agent{ID: "analyzer", Name: "analyzer", Capabilities: []string{"analyze"}, MaxConcurrent: 2})
	reg.Register(&models.Agent{ID: "tester", Name: "tester", Capabilities: []string{"test"}, MaxConcurrent: 1})

	coord := coordinator.New(coordinator.Options{Registry: reg, Store: store})
	return New(coord, reg, store), coord, reg, store
}

func TestSnapshotEmpty(t *testing.T) {
	r, _, _, _ := setup(t)

	status := r.Snapshot()
	if status.TasksTotal != 0 || status.CompletionRate != 0 {
		t.Errorf("empty snapshot: %+v", status)
	}
	if len(status.Agents) != 2 {
		t.Fatalf("agents = %d, want 2", len(status.Agents))
	}
	if status.Agents[0].ID != "analyzer" || status.Agents[1].ID != "tester" {
		t.Errorf("agents should be in ID order: %+v", status.Agents)
	}
	if status.Agents[0].SuccessRate != 0.5 {
		t.Errorf("unproven agent rate = %f, want 0.5", status.Agents[0].SuccessRate)
	}
}

func TestSnapshotCountsAndRate(t *testing.T) {
	r, coord, _, store := setup(t)

	// Two completed, one failed, one still created.
	for i := 0; i < 2; i++ {
		id, _ := coord.CreateTask("analyze", "x", 0)
		coord.Assign(context.Background(), id)
		coord.MarkExecuting(id)
		coord.OnExecutionResult(id, models.ExecutionRecord{
			TaskID: id, AgentID: "analyzer", Attempt: 1, Success: true,
			Duration: 10 * time.Millisecond, StartedAt: time.Now(),
		}, "ok")
		store.Update("analyze", "analyzer", true, 10*time.Millisecond)
	}

	failedID, _ := coord.CreateTask("deploy", "x", 0)
	coord.Assign(context.Background(), failedID) // no deploy agent -> FAILED

	coord.CreateTask("test", "pending", 0)

	status := r.Snapshot()
	if status.TasksTotal != 4 {
		t.Errorf("total = %d, want 4", status.TasksTotal)
	}
	if status.TasksCompleted != 2 || status.TasksFailed != 1 || status.TasksActive != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1",
			status.TasksCompleted, status.TasksFailed, status.TasksActive)
	}
	if status.CompletionRate != 0.5 {
		t.Errorf("completion rate = %f, want 0.5", status.CompletionRate)
	}

	var analyzer *AgentSummary
	for i := range status.Agents {
		if status.Agents[i].ID == "analyzer" {
			analyzer = &status.Agents[i]
		}
	}
	if analyzer == nil {
		t.Fatal("analyzer missing from summary")
	}
	if analyzer.Successes != 2 || analyzer.SuccessRate != 1.0 {
		t.Errorf("analyzer stats = %d successes rate %f", analyzer.Successes, analyzer.SuccessRate)
	}
	if analyzer.TasksCompleted != 2 {
		t.Errorf("analyzer completed = %d, want 2", analyzer.TasksCompleted)
	}
}

func TestSnapshotDoesNotMutate(t *testing.T) {
	r, coord, _, _ := setup(t)

	id, _ := coord.CreateTask("analyze", "x", 0)
	before, _ := coord.Get(id)

	for i := 0; i < 5; i++ {
		r.Snapshot()
		r.Tasks()
		r.Patterns()
	}

	after, _ := coord.Get(id)
	if after.Version != before.Version || after.State != before.State {
		t.Error("reporting must not mutate task state")
	}
}

func TestPatternsSorted(t *testing.T) {
	r, _, _, store := setup(t)

	store.Update("test", "tester", true, time.Millisecond)
	store.Update("analyze", "analyzer", true, time.Millisecond)
	store.Update("analyze", "tester", false, time.Millisecond)

	patterns, err := r.Patterns()
	if err != nil {
		t.Fatalf("Patterns: %v", err)
	}
	if len(patterns) != 3 {
		t.Fatalf("patterns = %d, want 3", len(patterns))
	}
	if patterns[0].Category != "analyze" || patterns[0].AgentID != "analyzer" {
		t.Errorf("unexpected first pattern: %+v", patterns[0])
	}
	if patterns[2].Category != "test" {
		t.Errorf("unexpected last pattern: %+v", patterns[2])
	}
}

func TestTasksNewestFirst(t *testing.T) {
	r, coord, _, _ := setup(t)

	first, _ := coord.CreateTask("analyze", "first", 0)
	time.Sleep(time.Millisecond)
	second, _ := coord.CreateTask("analyze", "second", 0)

	tasks := r.Tasks()
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(tasks))
	}
	if tasks[0].ID != second || tasks[1].ID != first {
		t.Error("tasks should be ordered newest first")
	}
}

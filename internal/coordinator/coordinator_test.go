package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ShayCichocki/hive/internal/pattern"
	"github.com/ShayCichocki/hive/internal/registry"
	"github.com/ShayCichocki/hive/pkg/models"
)

func newTestCoordinator(t *testing.T, agents ...*models.Agent) (*Coordinator, *registry.Registry, pattern.Store) {
	t.Helper()

	store := pattern.NewMemoryStore(0.2)
	reg := registry.New(store)
	for _, a := range agents {
		if err := reg.Register(a); err != nil {
			t.Fatalf("register %s: %v", a.ID, err)
		}
	}

	coord := New(Options{
		Registry:    reg,
		Store:       store,
		MaxRetries:  3,
		BackoffBase: time.Millisecond,
		BackoffCap:  10 * time.Millisecond,
	})
	return coord, reg, store
}

func testAgent(id string, caps []string, capacity int) *models.Agent {
	return &models.Agent{ID: id, Name: id, Capabilities: caps, MaxConcurrent: capacity}
}

func TestCreateAndGet(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)

	id, err := coord.CreateTask("analyze", "analyze src/", 1)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	task, err := coord.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if task.State != models.TaskStateCreated {
		t.Errorf("state = %s, want %s", task.State, models.TaskStateCreated)
	}
	if task.Category != "analyze" || task.Priority != 1 {
		t.Errorf("unexpected task: %+v", task)
	}

	if _, err := coord.Get("nope"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestCreateTaskRejectsEmptyCategory(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)
	if _, err := coord.CreateTask("", "payload", 0); err == nil {
		t.Error("expected error for empty category")
	}
}

func TestAssignPicksCapableAgent(t *testing.T) {
	coord, reg, _ := newTestCoordinator(t,
		testAgent("code_analyzer", []string{"analyze"}, 2),
		testAgent("test_runner", []string{"test"}, 2),
	)

	id, _ := coord.CreateTask("analyze", "analyze src/", 0)
	agentID, err := coord.Assign(context.Background(), id)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if agentID != "code_analyzer" {
		t.Errorf("assigned to %s, want code_analyzer", agentID)
	}

	task, _ := coord.Get(id)
	if task.State != models.TaskStateAssigned || task.AssignedTo != "code_analyzer" {
		t.Errorf("unexpected task after assign: %+v", task)
	}
	if reg.CurrentLoad("code_analyzer") != 1 {
		t.Errorf("load = %d, want 1", reg.CurrentLoad("code_analyzer"))
	}
}

func TestAssignNoCapableAgentFailsWithoutRetry(t *testing.T) {
	coord, _, store := newTestCoordinator(t,
		testAgent("code_analyzer", []string{"analyze"}, 2),
	)

	id, _ := coord.CreateTask("deploy", "deploy it", 0)
	_, err := coord.Assign(context.Background(), id)
	if !errors.Is(err, ErrAgentUnavailable) {
		t.Fatalf("expected ErrAgentUnavailable, got %v", err)
	}

	task, _ := coord.Get(id)
	if task.State != models.TaskStateFailed {
		t.Errorf("state = %s, want %s", task.State, models.TaskStateFailed)
	}
	if task.FailReason != models.FailReasonAgentUnavailable {
		t.Errorf("fail reason = %s, want %s", task.FailReason, models.FailReasonAgentUnavailable)
	}

	recs, _ := store.RecordsForTask(id)
	if len(recs) != 0 {
		t.Errorf("expected zero execution records, got %d", len(recs))
	}
}

func TestAssignTerminalTask(t *testing.T) {
	coord, _, _ := newTestCoordinator(t, testAgent("a", []string{"analyze"}, 1))

	id, _ := coord.CreateTask("analyze", "x", 0)
	if err := coord.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := coord.Assign(context.Background(), id); !errors.Is(err, ErrTerminalState) {
		t.Errorf("expected ErrTerminalState, got %v", err)
	}
}

func TestAssignNoCapacityLeavesTaskCreated(t *testing.T) {
	coord, _, _ := newTestCoordinator(t, testAgent("a", []string{"analyze"}, 1))

	first, _ := coord.CreateTask("analyze", "x", 0)
	if _, err := coord.Assign(context.Background(), first); err != nil {
		t.Fatalf("Assign first: %v", err)
	}

	second, _ := coord.CreateTask("analyze", "y", 0)
	_, err := coord.Assign(context.Background(), second)
	if !errors.Is(err, ErrNoCapacity) {
		t.Fatalf("expected ErrNoCapacity, got %v", err)
	}

	task, _ := coord.Get(second)
	if task.State != models.TaskStateCreated {
		t.Errorf("contended task should stay created, got %s", task.State)
	}
}

func TestApprovalDenied(t *testing.T) {
	store := pattern.NewMemoryStore(0.2)
	reg := registry.New(store)
	reg.Register(testAgent("deployer", []string{"deploy"}, 1))

	coord := New(Options{
		Registry: reg,
		Store:    store,
		Approval: &CategoryPolicy{Restricted: map[string]bool{"deploy": true}},
	})

	id, _ := coord.CreateTask("deploy", "ship it", 0)
	_, err := coord.Assign(context.Background(), id)
	if !errors.Is(err, ErrApprovalDenied) {
		t.Fatalf("expected ErrApprovalDenied, got %v", err)
	}

	task, _ := coord.Get(id)
	if task.FailReason != models.FailReasonApprovalDenied {
		t.Errorf("fail reason = %s, want %s", task.FailReason, models.FailReasonApprovalDenied)
	}
	if reg.CurrentLoad("deployer") != 0 {
		t.Error("denied task must not hold capacity")
	}
}

func TestSuccessCompletesAndReleases(t *testing.T) {
	coord, reg, _ := newTestCoordinator(t, testAgent("a", []string{"analyze"}, 1))

	id, _ := coord.CreateTask("analyze", "x", 0)
	coord.Assign(context.Background(), id)
	if err := coord.MarkExecuting(id); err != nil {
		t.Fatalf("MarkExecuting: %v", err)
	}

	rec := models.ExecutionRecord{
		TaskID: id, AgentID: "a", Attempt: 1, Success: true,
		Duration: 50 * time.Millisecond, StartedAt: time.Now(),
	}
	if err := coord.OnExecutionResult(id, rec, "analysis done"); err != nil {
		t.Fatalf("OnExecutionResult: %v", err)
	}

	task, _ := coord.Get(id)
	if task.State != models.TaskStateCompleted {
		t.Errorf("state = %s, want %s", task.State, models.TaskStateCompleted)
	}
	if task.Result != "analysis done" || task.CompletedAt == nil {
		t.Errorf("unexpected completed task: %+v", task)
	}
	if reg.CurrentLoad("a") != 0 {
		t.Errorf("capacity not released, load = %d", reg.CurrentLoad("a"))
	}

	agent := reg.Get("a")
	if agent.TasksCompleted != 1 {
		t.Errorf("tasks completed = %d, want 1", agent.TasksCompleted)
	}
}

func TestCompletedStatusIdempotent(t *testing.T) {
	coord, _, _ := newTestCoordinator(t, testAgent("a", []string{"analyze"}, 1))

	id, _ := coord.CreateTask("analyze", "x", 0)
	coord.Assign(context.Background(), id)
	coord.MarkExecuting(id)
	coord.OnExecutionResult(id, models.ExecutionRecord{
		TaskID: id, AgentID: "a", Attempt: 1, Success: true, StartedAt: time.Now(),
	}, "ok")

	first, _ := coord.Get(id)
	for i := 0; i < 10; i++ {
		again, _ := coord.Get(id)
		if *again.CompletedAt != *first.CompletedAt || again.Version != first.Version ||
			again.State != first.State || again.Result != first.Result {
			t.Fatal("completed task status must be stable across queries")
		}
	}
}

func TestFailureSchedulesRetry(t *testing.T) {
	coord, reg, _ := newTestCoordinator(t, testAgent("a", []string{"analyze"}, 1))

	requeued := make(chan string, 1)
	coord.SetRequeueHandler(func(taskID string) { requeued <- taskID })

	id, _ := coord.CreateTask("analyze", "x", 0)
	coord.Assign(context.Background(), id)
	coord.MarkExecuting(id)

	rec := models.ExecutionRecord{
		TaskID: id, AgentID: "a", Attempt: 1, Success: false,
		Error: "boom", StartedAt: time.Now(),
	}
	if err := coord.OnExecutionResult(id, rec, ""); err != nil {
		t.Fatalf("OnExecutionResult: %v", err)
	}

	task, _ := coord.Get(id)
	if task.State != models.TaskStateCreated {
		t.Errorf("state = %s, want %s (retry re-enters assignment)", task.State, models.TaskStateCreated)
	}
	if task.AssignedTo != "" {
		t.Error("retrying task must not keep its assignment")
	}
	if task.Error != "boom" {
		t.Errorf("last error = %q, want boom", task.Error)
	}
	if reg.CurrentLoad("a") != 0 {
		t.Error("capacity must be released before the backoff wait")
	}

	select {
	case got := <-requeued:
		if got != id {
			t.Errorf("requeued %s, want %s", got, id)
		}
	case <-time.After(time.Second):
		t.Fatal("requeue handler never fired")
	}
}

func TestExhaustedRetriesFailTerminally(t *testing.T) {
	coord, _, _ := newTestCoordinator(t, testAgent("a", []string{"analyze"}, 1))

	id, _ := coord.CreateTask("analyze", "x", 0)
	coord.Assign(context.Background(), id)
	coord.MarkExecuting(id)

	rec := models.ExecutionRecord{
		TaskID: id, AgentID: "a", Attempt: 3, Success: false,
		Error: "still broken", StartedAt: time.Now(),
	}
	if err := coord.OnExecutionResult(id, rec, ""); err != nil {
		t.Fatalf("OnExecutionResult: %v", err)
	}

	task, _ := coord.Get(id)
	if task.State != models.TaskStateFailed {
		t.Errorf("state = %s, want %s", task.State, models.TaskStateFailed)
	}
	if task.FailReason != models.FailReasonExecutionError {
		t.Errorf("fail reason = %s, want %s", task.FailReason, models.FailReasonExecutionError)
	}
	if task.Error != "still broken" {
		t.Errorf("last error not retained: %q", task.Error)
	}
	if task.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", task.Attempts)
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	coord := New(Options{
		BackoffBase: 100 * time.Millisecond,
		BackoffCap:  5 * time.Second,
	})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{6, 3200 * time.Millisecond},
		{7, 5 * time.Second},
		{20, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := coord.backoffFor(tt.attempt); got != tt.want {
			t.Errorf("backoffFor(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestCancelAssignedTask(t *testing.T) {
	coord, reg, _ := newTestCoordinator(t, testAgent("a", []string{"analyze"}, 1))

	id, _ := coord.CreateTask("analyze", "x", 0)
	coord.Assign(context.Background(), id)

	if err := coord.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	task, _ := coord.Get(id)
	if task.State != models.TaskStateFailed || task.FailReason != models.FailReasonCancelled {
		t.Errorf("unexpected cancelled task: state=%s reason=%s", task.State, task.FailReason)
	}
	if reg.CurrentLoad("a") != 0 {
		t.Error("cancel must release reserved capacity")
	}

	if err := coord.Cancel(id); !errors.Is(err, ErrTerminalState) {
		t.Errorf("second cancel: expected ErrTerminalState, got %v", err)
	}

	if task.Error != "cancelled" {
		t.Errorf("error = %q, want the default cancellation text", task.Error)
	}
}

func TestCancelWithCauseRetainsReason(t *testing.T) {
	coord, _, _ := newTestCoordinator(t, testAgent("a", []string{"analyze"}, 1))

	id, _ := coord.CreateTask("analyze", "x", 0)
	coord.Assign(context.Background(), id)
	coord.MarkExecuting(id)

	if err := coord.CancelWithCause(id, "hard timeout exceeded"); err != nil {
		t.Fatalf("CancelWithCause: %v", err)
	}

	task, _ := coord.Get(id)
	if task.State != models.TaskStateFailed || task.FailReason != models.FailReasonCancelled {
		t.Errorf("unexpected state: state=%s reason=%s", task.State, task.FailReason)
	}
	if task.Error != "hard timeout exceeded" {
		t.Errorf("error = %q, want the cause retained", task.Error)
	}
}

func TestCancelSignalsExecutor(t *testing.T) {
	coord, _, _ := newTestCoordinator(t, testAgent("a", []string{"analyze"}, 1))

	id, _ := coord.CreateTask("analyze", "x", 0)
	coord.Assign(context.Background(), id)
	coord.MarkExecuting(id)

	ctx, cancel := context.WithCancel(context.Background())
	coord.AttachCancel(id, cancel)
	defer coord.DetachCancel(id)

	if err := coord.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("executor context was not cancelled")
	}

	// A result arriving after cancellation is dropped without error.
	rec := models.ExecutionRecord{TaskID: id, AgentID: "a", Attempt: 1, Success: true, StartedAt: time.Now()}
	if err := coord.OnExecutionResult(id, rec, "late"); err != nil {
		t.Errorf("late result should be absorbed, got %v", err)
	}
	task, _ := coord.Get(id)
	if task.State != models.TaskStateFailed {
		t.Errorf("late result must not resurrect a cancelled task, state = %s", task.State)
	}
}

func TestCancelStopsPendingRetry(t *testing.T) {
	coord, _, _ := newTestCoordinator(t, testAgent("a", []string{"analyze"}, 1))

	requeued := make(chan string, 1)
	coord.SetRequeueHandler(func(taskID string) { requeued <- taskID })

	// Use a long backoff so the cancel lands before the timer fires.
	coord.backoffBase = time.Second
	coord.backoffCap = time.Second

	id, _ := coord.CreateTask("analyze", "x", 0)
	coord.Assign(context.Background(), id)
	coord.MarkExecuting(id)
	coord.OnExecutionResult(id, models.ExecutionRecord{
		TaskID: id, AgentID: "a", Attempt: 1, Success: false, Error: "boom", StartedAt: time.Now(),
	}, "")

	if err := coord.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	select {
	case <-requeued:
		t.Fatal("cancelled task must not be requeued")
	case <-time.After(1200 * time.Millisecond):
	}
}

func TestConcurrentAssignNeverExceedsCapacity(t *testing.T) {
	agents := []*models.Agent{
		testAgent("a1", []string{"general"}, 2),
		testAgent("a2", []string{"general"}, 2),
		testAgent("a3", []string{"general"}, 2),
	}
	coord, reg, _ := newTestCoordinator(t, agents...)

	const totalTasks = 100
	const callers = 5

	ids := make(chan string, totalTasks)
	for i := 0; i < totalTasks; i++ {
		id, err := coord.CreateTask("general", "work", 0)
		if err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
		ids <- id
	}
	close(ids)

	var wg sync.WaitGroup
	var mu sync.Mutex
	maxLoad := 0

	observe := func() {
		mu.Lock()
		defer mu.Unlock()
		for _, a := range agents {
			if l := reg.CurrentLoad(a.ID); l > maxLoad {
				maxLoad = l
			}
		}
	}

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ids {
				for {
					agentID, err := coord.Assign(context.Background(), id)
					if errors.Is(err, ErrNoCapacity) {
						time.Sleep(time.Millisecond)
						continue
					}
					if err != nil {
						t.Errorf("Assign %s: %v", id, err)
						return
					}
					observe()

					coord.MarkExecuting(id)
					coord.OnExecutionResult(id, models.ExecutionRecord{
						TaskID: id, AgentID: agentID, Attempt: 1, Success: true, StartedAt: time.Now(),
					}, "done")
					break
				}
			}
		}()
	}
	wg.Wait()

	if maxLoad > 2 {
		t.Errorf("observed load %d exceeds declared capacity 2", maxLoad)
	}

	counts := coord.TasksByState()
	if counts[models.TaskStateCompleted] != totalTasks {
		t.Errorf("completed = %d, want %d", counts[models.TaskStateCompleted], totalTasks)
	}
}

func TestAssignedAgentAlwaysCapable(t *testing.T) {
	coord, _, _ := newTestCoordinator(t,
		testAgent("analyzer", []string{"analyze"}, 2),
		testAgent("tester", []string{"test"}, 2),
		testAgent("both", []string{"analyze", "test"}, 2),
	)

	for i := 0; i < 6; i++ {
		category := "analyze"
		if i%2 == 0 {
			category = "test"
		}
		id, _ := coord.CreateTask(category, "x", 0)
		agentID, err := coord.Assign(context.Background(), id)
		if errors.Is(err, ErrNoCapacity) {
			continue
		}
		if err != nil {
			t.Fatalf("Assign: %v", err)
		}
		if agentID == "analyzer" && category != "analyze" {
			t.Errorf("analyzer assigned %s task", category)
		}
		if agentID == "tester" && category != "test" {
			t.Errorf("tester assigned %s task", category)
		}
	}
}

func TestImportTasksSkipsExisting(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)

	id, _ := coord.CreateTask("analyze", "live", 0)
	live, _ := coord.Get(id)

	imported := coord.ImportTasks([]*models.Task{
		live,
		{ID: "restored-1", Category: "test", State: models.TaskStateCompleted},
		nil,
	})
	if imported != 1 {
		t.Errorf("imported = %d, want 1", imported)
	}

	got, err := coord.Get("restored-1")
	if err != nil {
		t.Fatalf("Get restored: %v", err)
	}
	if got.State != models.TaskStateCompleted {
		t.Errorf("restored state = %s", got.State)
	}
}

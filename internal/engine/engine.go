// Package engine invokes agent executors for assigned tasks, measures
// outcomes, and feeds the pattern store. The executor is a black box; its
// call happens outside every coordinator and registry lock.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ShayCichocki/hive/internal/coordinator"
	"github.com/ShayCichocki/hive/internal/pattern"
	"github.com/ShayCichocki/hive/internal/registry"
	"github.com/ShayCichocki/hive/pkg/models"
)

// ExecResult is the executor contract's return shape: success flag, opaque
// output, and an error message for failed attempts.
type ExecResult struct {
	// Success indicates whether the work succeeded.
	Success bool
	// Output is the opaque result payload.
	Output string
	// Err is the failure description when Success is false.
	Err string
}

// Executor is the external-capability boundary the engine invokes for each
// attempt. Implementations own their internal timeout discipline but must
// honor context cancellation on a best-effort basis; the engine applies a
// hard timeout regardless.
type Executor interface {
	Execute(ctx context.Context, task *models.Task) ExecResult
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task *models.Task) ExecResult

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, task *models.Task) ExecResult {
	return f(ctx, task)
}

// Simulated returns an executor that succeeds immediately with a canned
// result. Used for built-in agents that have no real backend wired.
func Simulated() Executor {
	return ExecutorFunc(func(ctx context.Context, task *models.Task) ExecResult {
		return ExecResult{
			Success: true,
			Output:  fmt.Sprintf("simulated %s: %s", task.Category, task.Payload),
		}
	})
}

// Options configures an Engine.
type Options struct {
	// Coordinator owns the task table. Required.
	Coordinator *coordinator.Coordinator
	// Registry is consulted for drain decisions. Required.
	Registry *registry.Registry
	// Store receives per-attempt learning updates. Required.
	Store pattern.Store
	// HardTimeout force-fails attempts whose executor ignores cancellation.
	// Defaults to 2 minutes.
	HardTimeout time.Duration
	// Default is the executor used for agents without a registered one.
	// Defaults to Simulated().
	Default Executor
	// Logf receives debug output. May be nil.
	Logf func(format string, args ...interface{})
}

// Engine drives assigned tasks through their executors. Retries re-enter
// through the coordinator's requeue handler; capacity-contended tasks wait in
// a priority queue drained as slots free up.
type Engine struct {
	coord *coordinator.Coordinator
	reg   *registry.Registry
	store pattern.Store

	hardTimeout time.Duration
	logf        func(format string, args ...interface{})

	// executors maps agent IDs to their executor. Agents without an entry
	// use fallback.
	executors map[string]Executor
	fallback  Executor
	execMu    sync.RWMutex

	pending *pendingQueue
}

// New creates an Engine. Call Start before submitting tasks.
func New(opts Options) *Engine {
	if opts.HardTimeout <= 0 {
		opts.HardTimeout = 2 * time.Minute
	}
	if opts.Default == nil {
		opts.Default = Simulated()
	}
	if opts.Logf == nil {
		opts.Logf = func(string, ...interface{}) {}
	}

	return &Engine{
		coord:       opts.Coordinator,
		reg:         opts.Registry,
		store:       opts.Store,
		hardTimeout: opts.HardTimeout,
		logf:        opts.Logf,
		executors:   make(map[string]Executor),
		fallback:    opts.Default,
		pending:     newPendingQueue(),
	}
}

// RegisterExecutor binds an executor to an agent ID.
func (e *Engine) RegisterExecutor(agentID string, ex Executor) {
	e.execMu.Lock()
	defer e.execMu.Unlock()
	e.executors[agentID] = ex
}

func (e *Engine) executorFor(agentID string) Executor {
	e.execMu.RLock()
	defer e.execMu.RUnlock()
	if ex, ok := e.executors[agentID]; ok {
		return ex
	}
	return e.fallback
}

// Start installs the engine as the coordinator's requeue handler and runs a
// background drain loop until the context is cancelled. The drain loop is a
// safety net for capacity freed by cancellations, which the engine does not
// otherwise observe.
func (e *Engine) Start(ctx context.Context) {
	e.coord.SetRequeueHandler(func(taskID string) {
		go e.dispatch(taskID)
	})

	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.drainOne()
			}
		}
	}()
}

// Run submits a task for asynchronous execution (fire-and-forget). Callers
// poll status later via the coordinator.
func (e *Engine) Run(taskID string) {
	go e.dispatch(taskID)
}

// AssignAndRun executes a task synchronously: it drives the first assignment
// inline and then waits until the task reaches a terminal state. Retries
// scheduled by the coordinator flow through the engine's requeue handler.
func (e *Engine) AssignAndRun(ctx context.Context, taskID string) (*models.Task, error) {
	e.dispatch(taskID)
	return e.Wait(ctx, taskID)
}

// Wait blocks until the task reaches a terminal state or the context ends.
func (e *Engine) Wait(ctx context.Context, taskID string) (*models.Task, error) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		task, err := e.coord.Get(taskID)
		if err != nil {
			return nil, err
		}
		if task.State.Terminal() {
			return task, nil
		}

		select {
		case <-ctx.Done():
			return task, ctx.Err()
		case <-ticker.C:
		}
	}
}

// dispatch performs one assignment-and-execution cycle for a task. Tasks that
// find every capable agent at capacity are parked in the pending queue; all
// other assignment failures are already reflected in the task's terminal
// state by the coordinator.
func (e *Engine) dispatch(taskID string) {
	agentID, err := e.coord.Assign(context.Background(), taskID)
	switch {
	case err == nil:
	case errors.Is(err, coordinator.ErrNoCapacity):
		e.park(taskID)
		return
	default:
		e.logf("[engine] dispatch %s: %v", taskID, err)
		return
	}

	e.runAttempt(taskID, agentID)
	e.drainOne()
}

// runAttempt invokes the executor for one attempt and reports the outcome.
// No coordinator or registry lock is held across the Execute call.
func (e *Engine) runAttempt(taskID, agentID string) {
	task, err := e.coord.Get(taskID)
	if err != nil {
		e.logf("[engine] attempt %s: %v", taskID, err)
		return
	}
	if err := e.coord.MarkExecuting(taskID); err != nil {
		// Lost a race with cancellation; capacity was already released.
		e.logf("[engine] attempt %s: %v", taskID, err)
		return
	}
	attempt := task.Attempts + 1

	ctx, cancel := context.WithTimeout(context.Background(), e.hardTimeout)
	e.coord.AttachCancel(taskID, cancel)

	started := time.Now()
	res := e.executorFor(agentID).Execute(ctx, task)
	duration := time.Since(started)

	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded) && !res.Success
	userCancelled := errors.Is(ctx.Err(), context.Canceled)
	e.coord.DetachCancel(taskID)
	cancel()

	rec := models.ExecutionRecord{
		TaskID:    taskID,
		AgentID:   agentID,
		Attempt:   attempt,
		Success:   res.Success,
		Duration:  duration,
		Error:     res.Err,
		StartedAt: started,
	}

	// Interrupted attempts don't teach anything about the pairing.
	if !timedOut && !userCancelled {
		if err := e.store.Update(task.Category, agentID, res.Success, duration); err != nil {
			e.logf("[engine] update pattern %s/%s: %v", task.Category, agentID, err)
		}
	}

	if timedOut {
		rec.Error = "hard timeout exceeded"
		if err := e.store.Record(rec); err != nil {
			e.logf("[engine] record %s attempt %d: %v", taskID, attempt, err)
		}
		if err := e.coord.CancelWithCause(taskID, rec.Error); err != nil && !errors.Is(err, coordinator.ErrTerminalState) {
			e.logf("[engine] timeout cancel %s: %v", taskID, err)
		}
		e.logf("[engine] task %s attempt %d exceeded hard timeout %s", taskID, attempt, e.hardTimeout)
		return
	}

	if err := e.coord.OnExecutionResult(taskID, rec, res.Output); err != nil {
		e.logf("[engine] result %s attempt %d: %v", taskID, attempt, err)
	}
}

// park places a capacity-contended task in the pending queue, keyed by
// priority so higher-priority work claims freed slots first.
func (e *Engine) park(taskID string) {
	task, err := e.coord.Get(taskID)
	if err != nil {
		return
	}
	e.pending.push(taskID, task.Priority)
	e.logf("[engine] task %s parked awaiting capacity (priority %d)", taskID, task.Priority)
}

// drainOne re-dispatches the highest-priority parked task, if any.
func (e *Engine) drainOne() {
	taskID, ok := e.pending.pop()
	if !ok {
		return
	}

	task, err := e.coord.Get(taskID)
	if err != nil || task.State != models.TaskStateCreated {
		return
	}
	go e.dispatch(taskID)
}

// PendingCount reports how many tasks are parked awaiting capacity.
func (e *Engine) PendingCount() int {
	return e.pending.len()
}

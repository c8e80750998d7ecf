package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/hive/internal/pattern"
	"github.com/ShayCichocki/hive/internal/registry"
	"github.com/ShayCichocki/hive/pkg/models"
)

// AgentSelector picks the agent to try first from the registry's ranked
// candidate list. The default selector takes the top-ranked candidate; the
// execution engine installs an epsilon-greedy one. When the selected agent
// has no free capacity the coordinator falls back to the remaining
// candidates in ranked order.
type AgentSelector func(category string, ranked []string) string

// GreedySelector always picks the top-ranked candidate.
func GreedySelector(category string, ranked []string) string {
	return ranked[0]
}

// Options configures a Coordinator. Zero-value fields fall back to defaults.
type Options struct {
	// Registry is the agent registry. Required.
	Registry *registry.Registry
	// Store receives execution records. Required; wrap with pattern.NewDegrading
	// so statistics failures never block routing.
	Store pattern.Store
	// Approval gates categories requiring confirmation. Defaults to AutoApprove.
	Approval ApprovalPolicy
	// Selector picks among ranked capable agents. Defaults to GreedySelector.
	Selector AgentSelector
	// MaxRetries bounds execution attempts per task. Defaults to 3.
	MaxRetries int
	// BackoffBase is the first retry delay. Defaults to 100ms.
	BackoffBase time.Duration
	// BackoffCap bounds the exponential backoff. Defaults to 5s.
	BackoffCap time.Duration
	// Logger receives debug output. Defaults to a no-op logger.
	Logger *DebugLogger
}

// Coordinator owns the task table and serializes state transitions per task
// with an optimistic version check. Locks cover bookkeeping transitions only,
// never the executor call.
type Coordinator struct {
	registry *registry.Registry
	store    pattern.Store
	approval ApprovalPolicy
	selector AgentSelector

	maxRetries  int
	backoffBase time.Duration
	backoffCap  time.Duration

	// tasks is the task table. Values are owned by the coordinator; readers
	// get clones.
	tasks map[string]*models.Task
	// cancels holds the in-flight executor cancel function per task.
	cancels map[string]context.CancelFunc
	// timers holds pending retry timers per task, stopped on cancellation.
	timers map[string]*time.Timer
	mu     sync.RWMutex

	// requeue re-enters a task into assignment after its backoff elapses.
	requeue   func(taskID string)
	requeueMu sync.RWMutex
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	if opts.Approval == nil {
		opts.Approval = AutoApprove()
	}
	if opts.Selector == nil {
		opts.Selector = GreedySelector
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 100 * time.Millisecond
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = 5 * time.Second
	}
	if opts.Logger != nil {
		setPackageLogger(opts.Logger)
	}

	return &Coordinator{
		registry:    opts.Registry,
		store:       opts.Store,
		approval:    opts.Approval,
		selector:    opts.Selector,
		maxRetries:  opts.MaxRetries,
		backoffBase: opts.BackoffBase,
		backoffCap:  opts.BackoffCap,
		tasks:       make(map[string]*models.Task),
		cancels:     make(map[string]context.CancelFunc),
		timers:      make(map[string]*time.Timer),
	}
}

// SetRequeueHandler installs the callback invoked when a failed task's
// backoff elapses and it should re-enter assignment. The execution engine
// installs its dispatch function here.
func (c *Coordinator) SetRequeueHandler(fn func(taskID string)) {
	c.requeueMu.Lock()
	defer c.requeueMu.Unlock()
	c.requeue = fn
}

// MaxRetries returns the configured attempt bound.
func (c *Coordinator) MaxRetries() int {
	return c.maxRetries
}

// CreateTask allocates a new task in state CREATED and returns its ID.
func (c *Coordinator) CreateTask(category, payload string, priority int) (string, error) {
	if category == "" {
		return "", fmt.Errorf("create task: empty category")
	}

	task := &models.Task{
		ID:        uuid.New().String(),
		Category:  category,
		Payload:   payload,
		Priority:  priority,
		State:     models.TaskStateCreated,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	c.tasks[task.ID] = task
	c.mu.Unlock()

	debugLog("task %s created (category=%s priority=%d)", task.ID, category, priority)
	return task.ID, nil
}

// Get returns a copy of the task. Repeated queries of a terminal task yield
// identical results.
func (c *Coordinator) Get(taskID string) (*models.Task, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("get task %s: %w", taskID, ErrTaskNotFound)
	}
	return t.Clone(), nil
}

// AllTasks returns copies of every task in the table.
func (c *Coordinator) AllTasks() []*models.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tasks := make([]*models.Task, 0, len(c.tasks))
	for _, t := range c.tasks {
		tasks = append(tasks, t.Clone())
	}
	return tasks
}

// TasksByState returns a count of tasks per lifecycle state.
func (c *Coordinator) TasksByState() map[models.TaskState]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := make(map[models.TaskState]int)
	for _, t := range c.tasks {
		counts[t.State]++
	}
	return counts
}

// ImportTasks inserts tasks restored from a snapshot. Existing IDs are left
// untouched; restored history never overwrites live tasks.
func (c *Coordinator) ImportTasks(tasks []*models.Task) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	imported := 0
	for _, t := range tasks {
		if t == nil || t.ID == "" {
			continue
		}
		if _, exists := c.tasks[t.ID]; exists {
			continue
		}
		c.tasks[t.ID] = t.Clone()
		imported++
	}
	return imported
}

// Assign routes a CREATED task to a capable agent: consults the approval
// policy, ranks capable agents, reserves one unit of the chosen agent's
// capacity, and transitions the task to ASSIGNED. When no registered agent
// declares the category the task fails terminally with reason
// agent_unavailable and no retry. When every capable agent is at capacity
// the task stays CREATED and ErrNoCapacity tells the caller to retry after a
// wait; capacity contention does not consume an attempt.
func (c *Coordinator) Assign(ctx context.Context, taskID string) (string, error) {
	snap, err := c.Get(taskID)
	if err != nil {
		return "", err
	}
	if snap.State.Terminal() {
		return "", fmt.Errorf("assign task %s: %w", taskID, ErrTerminalState)
	}
	if snap.State != models.TaskStateCreated {
		return "", fmt.Errorf("assign task %s: state is %s, want %s", taskID, snap.State, models.TaskStateCreated)
	}

	approved, err := c.approval.Approve(ctx, snap)
	if err != nil || !approved {
		c.failTask(taskID, models.FailReasonApprovalDenied, "approval policy denied task")
		if err != nil {
			return "", fmt.Errorf("assign task %s: approval: %v: %w", taskID, err, ErrApprovalDenied)
		}
		return "", fmt.Errorf("assign task %s: %w", taskID, ErrApprovalDenied)
	}

	ranked := c.registry.FindCapable(snap.Category)
	if len(ranked) == 0 {
		c.failTask(taskID, models.FailReasonAgentUnavailable,
			fmt.Sprintf("no agent with capability %q", snap.Category))
		debugLog("task %s failed: no agent for category %s", taskID, snap.Category)
		return "", fmt.Errorf("assign task %s: %w", taskID, ErrAgentUnavailable)
	}

	agentID, err := c.reserveOne(snap.Category, ranked)
	if err != nil {
		return "", fmt.Errorf("assign task %s: %w", taskID, err)
	}

	err = c.transition(taskID, snap.Version, func(t *models.Task) {
		t.State = models.TaskStateAssigned
		t.AssignedTo = agentID
	})
	if err != nil {
		c.registry.Release(agentID)
		return "", fmt.Errorf("assign task %s: %w", taskID, err)
	}

	debugLog("task %s assigned to %s", taskID, agentID)
	return agentID, nil
}

// reserveOne tries the selector's pick first, then the remaining candidates
// in ranked order, reserving capacity on the first agent with a free slot.
func (c *Coordinator) reserveOne(category string, ranked []string) (string, error) {
	pick := c.selector(category, ranked)
	if err := c.registry.Reserve(pick); err == nil {
		return pick, nil
	}

	for _, id := range ranked {
		if id == pick {
			continue
		}
		if err := c.registry.Reserve(id); err == nil {
			return id, nil
		}
	}
	return "", ErrNoCapacity
}

// MarkExecuting transitions an ASSIGNED task to EXECUTING. The execution
// engine calls this immediately before invoking the executor.
func (c *Coordinator) MarkExecuting(taskID string) error {
	snap, err := c.Get(taskID)
	if err != nil {
		return err
	}
	if snap.State != models.TaskStateAssigned {
		if snap.State.Terminal() {
			return fmt.Errorf("execute task %s: %w", taskID, ErrTerminalState)
		}
		return fmt.Errorf("execute task %s: state is %s, want %s", taskID, snap.State, models.TaskStateAssigned)
	}

	return c.transition(taskID, snap.Version, func(t *models.Task) {
		t.State = models.TaskStateExecuting
	})
}

// AttachCancel registers the in-flight executor's cancel function so Cancel
// can signal it. DetachCancel must be called when the attempt finishes.
func (c *Coordinator) AttachCancel(taskID string, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels[taskID] = cancel
}

// DetachCancel removes the task's registered cancel function.
func (c *Coordinator) DetachCancel(taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cancels, taskID)
}

// OnExecutionResult records an attempt's outcome and advances the task:
// success completes it; failure releases the agent's capacity and either
// schedules a backoff retry (attempts < max) or fails the task with the last
// error retained. A task cancelled while the executor was in flight is left
// in its terminal state.
func (c *Coordinator) OnExecutionResult(taskID string, rec models.ExecutionRecord, result string) error {
	if err := c.store.Record(rec); err != nil {
		debugLog("task %s: record attempt %d: %v", taskID, rec.Attempt, err)
	}

	for {
		snap, err := c.Get(taskID)
		if err != nil {
			return err
		}
		if snap.State.Terminal() {
			// Cancelled mid-flight; Cancel already released capacity.
			return nil
		}
		if snap.State != models.TaskStateExecuting {
			return fmt.Errorf("result for task %s: state is %s, want %s", taskID, snap.State, models.TaskStateExecuting)
		}

		err = c.applyResult(taskID, snap, rec, result)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		return err
	}
}

func (c *Coordinator) applyResult(taskID string, snap *models.Task, rec models.ExecutionRecord, result string) error {
	agentID := snap.AssignedTo

	if rec.Success {
		err := c.transition(taskID, snap.Version, func(t *models.Task) {
			now := time.Now()
			t.State = models.TaskStateCompleted
			t.Attempts = rec.Attempt
			t.Result = result
			t.Error = ""
			t.CompletedAt = &now
		})
		if err != nil {
			return err
		}
		c.registry.Release(agentID)
		c.registry.MarkCompleted(agentID)
		debugLog("task %s completed by %s in %s (attempt %d)", taskID, agentID, rec.Duration, rec.Attempt)
		return nil
	}

	if rec.Attempt < c.maxRetries {
		err := c.transition(taskID, snap.Version, func(t *models.Task) {
			t.State = models.TaskStateCreated
			t.AssignedTo = ""
			t.Attempts = rec.Attempt
			t.Error = rec.Error
		})
		if err != nil {
			return err
		}
		c.registry.Release(agentID)

		delay := c.backoffFor(rec.Attempt)
		debugLog("task %s attempt %d failed, retrying in %s: %s", taskID, rec.Attempt, delay, rec.Error)
		c.scheduleRequeue(taskID, delay)
		return nil
	}

	err := c.transition(taskID, snap.Version, func(t *models.Task) {
		now := time.Now()
		t.State = models.TaskStateFailed
		t.Attempts = rec.Attempt
		t.Error = rec.Error
		t.FailReason = models.FailReasonExecutionError
		t.CompletedAt = &now
	})
	if err != nil {
		return err
	}
	c.registry.Release(agentID)
	debugLog("task %s failed after %d attempts: %s", taskID, rec.Attempt, rec.Error)
	return nil
}

// backoffFor computes the retry delay after the given attempt number:
// base × 2^(attempt-1), capped.
func (c *Coordinator) backoffFor(attempt int) time.Duration {
	delay := c.backoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.backoffCap {
			return c.backoffCap
		}
	}
	if delay > c.backoffCap {
		return c.backoffCap
	}
	return delay
}

// scheduleRequeue arms a timer that re-enters the task into assignment.
func (c *Coordinator) scheduleRequeue(taskID string, delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timers[taskID] = time.AfterFunc(delay, func() {
		c.mu.Lock()
		delete(c.timers, taskID)
		c.mu.Unlock()

		c.requeueMu.RLock()
		fn := c.requeue
		c.requeueMu.RUnlock()
		if fn != nil {
			fn(taskID)
		}
	})
}

// Cancel transitions a non-terminal task to FAILED with reason cancelled,
// releases any reserved capacity, stops a pending retry timer, and signals
// the in-flight executor if one is attached. Cancellation of the executor is
// best-effort; the engine's hard timeout bounds how long an unresponsive
// executor is waited on.
func (c *Coordinator) Cancel(taskID string) error {
	return c.CancelWithCause(taskID, "cancelled")
}

// CancelWithCause cancels like Cancel but records cause as the task's error
// text, so a timed-out task keeps its timeout message instead of the generic
// cancellation one.
func (c *Coordinator) CancelWithCause(taskID, cause string) error {
	for {
		snap, err := c.Get(taskID)
		if err != nil {
			return err
		}
		if snap.State.Terminal() {
			return fmt.Errorf("cancel task %s: %w", taskID, ErrTerminalState)
		}

		err = c.transition(taskID, snap.Version, func(t *models.Task) {
			now := time.Now()
			t.State = models.TaskStateFailed
			t.FailReason = models.FailReasonCancelled
			t.Error = cause
			t.CompletedAt = &now
		})
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return err
		}

		c.mu.Lock()
		if timer, ok := c.timers[taskID]; ok {
			timer.Stop()
			delete(c.timers, taskID)
		}
		cancel := c.cancels[taskID]
		delete(c.cancels, taskID)
		c.mu.Unlock()

		if snap.State == models.TaskStateAssigned || snap.State == models.TaskStateExecuting {
			c.registry.Release(snap.AssignedTo)
		}
		if cancel != nil {
			cancel()
		}

		debugLog("task %s cancelled (was %s)", taskID, snap.State)
		return nil
	}
}

// failTask moves a task to FAILED with the given reason, retrying on
// version conflicts. Used for assignment-stage failures.
func (c *Coordinator) failTask(taskID string, reason models.FailReason, msg string) {
	for {
		snap, err := c.Get(taskID)
		if err != nil || snap.State.Terminal() {
			return
		}
		err = c.transition(taskID, snap.Version, func(t *models.Task) {
			now := time.Now()
			t.State = models.TaskStateFailed
			t.FailReason = reason
			t.Error = msg
			t.CompletedAt = &now
		})
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		return
	}
}

// transition applies a mutation to the task if and only if its version still
// matches expected, then bumps the version. Writers that lose the race get
// ErrVersionConflict and must re-read.
func (c *Coordinator) transition(taskID string, expected uint64, mutate func(*models.Task)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	if t.Version != expected {
		return ErrVersionConflict
	}

	mutate(t)
	t.Version++
	return nil
}

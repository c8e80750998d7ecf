package models

import "time"

// TaskState represents the current lifecycle state of a task.
type TaskState string

const (
	// TaskStateCreated indicates the task exists but has no agent yet.
	TaskStateCreated TaskState = "created"
	// TaskStateAssigned indicates an agent has been reserved for the task.
	TaskStateAssigned TaskState = "assigned"
	// TaskStateExecuting indicates the agent's executor is running.
	TaskStateExecuting TaskState = "executing"
	// TaskStateCompleted indicates the task finished successfully.
	TaskStateCompleted TaskState = "completed"
	// TaskStateFailed indicates the task failed terminally.
	TaskStateFailed TaskState = "failed"
)

// Valid returns true if the state is a known value.
func (s TaskState) Valid() bool {
	switch s {
	case TaskStateCreated, TaskStateAssigned, TaskStateExecuting,
		TaskStateCompleted, TaskStateFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are possible from this state.
func (s TaskState) Terminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed
}

// FailReason classifies why a task reached TaskStateFailed.
type FailReason string

const (
	// FailReasonAgentUnavailable means no registered agent has the required capability.
	FailReasonAgentUnavailable FailReason = "agent_unavailable"
	// FailReasonExecutionError means the executor reported failure on every allowed attempt.
	FailReasonExecutionError FailReason = "execution_error"
	// FailReasonCancelled means the task was cancelled or timed out.
	FailReasonCancelled FailReason = "cancelled"
	// FailReasonApprovalDenied means the approval policy rejected the task.
	FailReasonApprovalDenied FailReason = "approval_denied"
)

// Task represents a unit of work routed through the coordinator.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Category is the capability tag an agent must declare to run this task.
	Category string `json:"category"`
	// Payload is the opaque work description passed to the executor.
	Payload string `json:"payload,omitempty"`
	// Priority orders tasks when capacity is contended. Higher runs first.
	Priority int `json:"priority"`
	// State is the current lifecycle state.
	State TaskState `json:"state"`
	// AssignedTo is the ID of the agent holding this task, if any.
	AssignedTo string `json:"assigned_to,omitempty"`
	// Attempts is the number of execution attempts made so far.
	Attempts int `json:"attempts"`
	// Version increments on every state transition (optimistic concurrency).
	Version uint64 `json:"version"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the task reached a terminal state, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Result holds the executor's output for a completed task.
	Result string `json:"result,omitempty"`
	// Error contains the last execution error if the task failed.
	Error string `json:"error,omitempty"`
	// FailReason classifies a failed task's terminal state.
	FailReason FailReason `json:"fail_reason,omitempty"`
}

// Clone returns a copy of the task safe to hand to readers.
func (t *Task) Clone() *Task {
	c := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// ExecutionRecord captures a single execution attempt of a task.
// Records are append-only: one per attempt, never modified once written.
type ExecutionRecord struct {
	// TaskID is the task that was executed.
	TaskID string `json:"task_id"`
	// AgentID is the agent that ran the attempt.
	AgentID string `json:"agent_id"`
	// Attempt is the 1-based attempt number.
	Attempt int `json:"attempt"`
	// Success indicates whether the executor reported success.
	Success bool `json:"success"`
	// Duration is the wall-clock time the executor call took.
	Duration time.Duration `json:"duration"`
	// Error is the executor's error message for failed attempts.
	Error string `json:"error,omitempty"`
	// StartedAt is when the attempt began.
	StartedAt time.Time `json:"started_at"`
}

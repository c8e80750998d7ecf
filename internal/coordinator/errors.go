package coordinator

import "errors"

// Task routing and execution error taxonomy. Every failure is also
// representable as a terminal task state plus a recorded FailReason; these
// sentinels exist so callers can match with errors.Is.
var (
	// ErrAgentUnavailable means no registered agent declares the task's
	// category. Fatal for the task; unavailability is not treated as transient.
	ErrAgentUnavailable = errors.New("no capable agent available")

	// ErrExecutionError means the executor reported failure on every allowed attempt.
	ErrExecutionError = errors.New("execution failed")

	// ErrCancelled means the task was cancelled or hit the hard timeout.
	ErrCancelled = errors.New("task cancelled")

	// ErrUnrecognizedCommand means the intent parser found no confident match.
	// No task is created; the error is surfaced directly to the caller.
	ErrUnrecognizedCommand = errors.New("unrecognized command")

	// ErrPatternStoreUnavailable marks degraded statistics. Non-fatal; routing
	// proceeds on default-zero patterns.
	ErrPatternStoreUnavailable = errors.New("pattern store unavailable")

	// ErrApprovalDenied means the approval policy rejected the task.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrTaskNotFound is returned for operations on an unknown task ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTerminalState is returned for transitions attempted on a task that
	// already reached COMPLETED or FAILED.
	ErrTerminalState = errors.New("task already in terminal state")

	// ErrVersionConflict means a concurrent writer advanced the task first.
	// The caller re-reads and retries.
	ErrVersionConflict = errors.New("task version conflict")

	// ErrNoCapacity means every capable agent is fully loaded right now.
	// The task stays CREATED; callers retry assignment after a short wait.
	ErrNoCapacity = errors.New("all capable agents at capacity")
)

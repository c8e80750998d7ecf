package models

import "time"

// AgentStatus represents the current state of an agent.
type AgentStatus string

const (
	// AgentStatusIdle indicates the agent has no tasks in flight.
	AgentStatusIdle AgentStatus = "idle"
	// AgentStatusBusy indicates the agent has at least one task in flight.
	AgentStatusBusy AgentStatus = "busy"
)

// Agent represents a registered worker with a declared capability set.
// The capability set and capacity are fixed at registration; re-register
// to change them.
type Agent struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id"`
	// Name is the human-readable agent name.
	Name string `json:"name"`
	// Capabilities lists the task categories this agent can execute.
	Capabilities []string `json:"capabilities"`
	// MaxConcurrent is the maximum number of tasks the agent may run at once.
	MaxConcurrent int `json:"max_concurrent"`
	// TasksCompleted counts successfully completed tasks.
	TasksCompleted int `json:"tasks_completed"`
	// RegisteredAt is when the agent joined the registry.
	RegisteredAt time.Time `json:"registered_at"`
}

// HasCapability returns true if the agent declares the given category.
func (a *Agent) HasCapability(category string) bool {
	for _, c := range a.Capabilities {
		if c == category {
			return true
		}
	}
	return false
}

// Clone returns a copy of the agent with its own capability slice.
func (a *Agent) Clone() *Agent {
	c := *a
	c.Capabilities = append([]string(nil), a.Capabilities...)
	return &c
}

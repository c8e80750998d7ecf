// Package registry tracks registered agents, their declared capabilities,
// and their live load. It provides thread-safe capability lookup ranked for
// the coordinator's assignment decisions.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ShayCichocki/hive/pkg/models"
)

var (
	// ErrDuplicateAgent is returned when registering an agent ID that already exists.
	ErrDuplicateAgent = errors.New("agent already registered")
	// ErrUnknownAgent is returned for operations on an unregistered agent ID.
	ErrUnknownAgent = errors.New("agent not registered")
	// ErrCapacityExhausted is returned when reserving a slot on a fully loaded agent.
	ErrCapacityExhausted = errors.New("agent at capacity")
)

// StatsProvider supplies historical success statistics for ranking.
// The pattern store satisfies this; a nil provider ranks by capacity alone.
type StatsProvider interface {
	Get(category, agentID string) (*models.Pattern, error)
}

// Registry manages agent registration, capability lookup, and load accounting.
// Capability sets are immutable after registration; re-register to change them.
type Registry struct {
	// agents maps agent IDs to agent models.
	agents map[string]*models.Agent
	// load maps agent IDs to the number of tasks currently reserved or executing.
	load map[string]int
	// stats supplies success-rate history for FindCapable ranking. May be nil.
	stats StatsProvider
	// mu protects all fields.
	mu sync.RWMutex
}

// New creates an empty Registry. stats may be nil; ranking then considers
// capacity only.
func New(stats StatsProvider) *Registry {
	return &Registry{
		agents: make(map[string]*models.Agent),
		load:   make(map[string]int),
		stats:  stats,
	}
}

// Register adds an agent to the registry.
// Returns ErrDuplicateAgent if the ID is already registered.
func (r *Registry) Register(a *models.Agent) error {
	if a.ID == "" {
		return fmt.Errorf("register agent: empty id")
	}
	if a.MaxConcurrent <= 0 {
		return fmt.Errorf("register agent %s: max concurrent must be positive", a.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[a.ID]; exists {
		return fmt.Errorf("register agent %s: %w", a.ID, ErrDuplicateAgent)
	}

	clone := a.Clone()
	if clone.RegisteredAt.IsZero() {
		clone.RegisteredAt = time.Now()
	}
	r.agents[a.ID] = clone
	r.load[a.ID] = 0
	return nil
}

// Unregister removes an agent and its load accounting.
func (r *Registry) Unregister(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, agentID)
	delete(r.load, agentID)
}

// Get retrieves a copy of an agent by ID. Returns nil if not registered.
func (r *Registry) Get(agentID string) *models.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[agentID]
	if !ok {
		return nil
	}
	return a.Clone()
}

// candidate pairs an agent ID with its ranking inputs.
type candidate struct {
	id        string
	available int
	rate      float64
}

// FindCapable returns the IDs of agents declaring the given capability,
// ranked by available capacity descending, then historical success rate for
// (category, agent) descending, with ties broken by agent ID ascending so
// the ordering is deterministic. Agents with no free capacity are included
// last; callers reserve capacity separately and may need to wait for a slot.
func (r *Registry) FindCapable(category string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []candidate
	for id, a := range r.agents {
		if !a.HasCapability(category) {
			continue
		}
		c := candidate{
			id:        id,
			available: a.MaxConcurrent - r.load[id],
		}
		if r.stats != nil {
			// Stats failures rank the agent as unproven rather than failing lookup.
			if p, err := r.stats.Get(category, id); err == nil {
				c.rate = p.SuccessRate()
			}
		}
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].available != candidates[j].available {
			return candidates[i].available > candidates[j].available
		}
		if candidates[i].rate != candidates[j].rate {
			return candidates[i].rate > candidates[j].rate
		}
		return candidates[i].id < candidates[j].id
	})

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return ids
}

// Reserve claims one unit of the agent's capacity.
// Returns ErrCapacityExhausted when the agent is fully loaded.
func (r *Registry) Reserve(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[agentID]
	if !ok {
		return fmt.Errorf("reserve %s: %w", agentID, ErrUnknownAgent)
	}
	if r.load[agentID] >= a.MaxConcurrent {
		return fmt.Errorf("reserve %s: %w", agentID, ErrCapacityExhausted)
	}
	r.load[agentID]++
	return nil
}

// Release returns one unit of the agent's capacity.
// Safe to call for unregistered agents; the load never goes negative.
func (r *Registry) Release(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.load[agentID] > 0 {
		r.load[agentID]--
	}
}

// CurrentLoad returns the number of tasks currently reserved on the agent.
func (r *Registry) CurrentLoad(agentID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.load[agentID]
}

// MarkCompleted increments the agent's completed-task counter.
func (r *Registry) MarkCompleted(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[agentID]; ok {
		a.TasksCompleted++
	}
}

// AllAgents returns copies of all registered agents in ID order.
func (r *Registry) AllAgents() []*models.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]*models.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a.Clone())
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })
	return agents
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

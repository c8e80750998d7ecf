package engine

import (
	"math/rand"
	"sync"
)

// EpsilonGreedy selects among ranked capable agents: with probability 1−ε it
// exploits the top-ranked candidate, with probability ε it explores a
// uniformly random alternative. Exploration keeps the learning loop from
// converging on a historically-lucky but suboptimal pairing.
type EpsilonGreedy struct {
	epsilon float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEpsilonGreedy creates a selector with the given exploration rate.
// epsilon outside [0,1] is clamped.
func NewEpsilonGreedy(epsilon float64, seed int64) *EpsilonGreedy {
	if epsilon < 0 {
		epsilon = 0
	}
	if epsilon > 1 {
		epsilon = 1
	}
	return &EpsilonGreedy{
		epsilon: epsilon,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Select implements coordinator.AgentSelector.
func (s *EpsilonGreedy) Select(category string, ranked []string) string {
	if len(ranked) == 1 {
		return ranked[0]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < s.epsilon {
		return ranked[1+s.rng.Intn(len(ranked)-1)]
	}
	return ranked[0]
}

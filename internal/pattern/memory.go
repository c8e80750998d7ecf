package pattern

import (
	"sync"
	"time"

	"github.com/ShayCichocki/hive/pkg/models"
)

// MemoryStore is an in-process Store used when no database path is configured
// and as the default for tests. Updates are atomic per key under a single lock;
// there is no cross-process persistence.
type MemoryStore struct {
	alpha    float64
	patterns map[string]*models.Pattern
	records  map[string][]models.ExecutionRecord
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store with the given EMA alpha.
func NewMemoryStore(alpha float64) *MemoryStore {
	return &MemoryStore{
		alpha:    alpha,
		patterns: make(map[string]*models.Pattern),
		records:  make(map[string][]models.ExecutionRecord),
	}
}

// Get returns a copy of the pattern for the key, or a default-zero pattern.
func (s *MemoryStore) Get(category, agentID string) (*models.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.patterns[Key(category, agentID)]; ok {
		c := *p
		return &c, nil
	}
	return &models.Pattern{Category: category, AgentID: agentID}, nil
}

// Update merges one execution outcome into the key's pattern.
func (s *MemoryStore) Update(category, agentID string, success bool, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key(category, agentID)
	p, ok := s.patterns[key]
	if !ok {
		p = &models.Pattern{Category: category, AgentID: agentID}
		s.patterns[key] = p
	}
	p.Observe(success, duration, s.alpha)
	return nil
}

// Record appends an execution record.
func (s *MemoryStore) Record(rec models.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.TaskID] = append(s.records[rec.TaskID], rec)
	return nil
}

// RecordsForTask returns the execution history of a task in append order.
func (s *MemoryStore) RecordsForTask(taskID string) ([]models.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ExecutionRecord(nil), s.records[taskID]...), nil
}

// All returns every stored pattern.
func (s *MemoryStore) All() ([]models.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patterns := make([]models.Pattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		patterns = append(patterns, *p)
	}
	return patterns, nil
}

// Import bulk-loads patterns, replacing entries for the same keys.
func (s *MemoryStore) Import(patterns []models.Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range patterns {
		c := p
		s.patterns[Key(p.Category, p.AgentID)] = &c
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Verify MemoryStore implements Store and Restorer at compile time.
var (
	_ Store    = (*MemoryStore)(nil)
	_ Restorer = (*MemoryStore)(nil)
)

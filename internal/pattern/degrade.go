package pattern

import (
	"time"

	"github.com/ShayCichocki/hive/pkg/models"
)

// Degrading wraps a Store so that backing-store failures never block routing.
// Reads fall back to a default-zero pattern and writes are absorbed; every
// degradation is reported through Logf. Availability of routing takes priority
// over accuracy of statistics.
type Degrading struct {
	inner Store
	logf  func(format string, args ...interface{})
}

// NewDegrading wraps the given store. logf may be nil to drop degradation logs.
func NewDegrading(inner Store, logf func(format string, args ...interface{})) *Degrading {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Degrading{inner: inner, logf: logf}
}

// Get returns the inner store's pattern, degrading to a default-zero pattern
// when the read fails.
func (d *Degrading) Get(category, agentID string) (*models.Pattern, error) {
	p, err := d.inner.Get(category, agentID)
	if err != nil {
		d.logf("[pattern] store unavailable for %s, using zero pattern: %v", Key(category, agentID), err)
		return &models.Pattern{Category: category, AgentID: agentID}, nil
	}
	return p, nil
}

// Update merges the outcome, absorbing write failures.
func (d *Degrading) Update(category, agentID string, success bool, duration time.Duration) error {
	if err := d.inner.Update(category, agentID, success, duration); err != nil {
		d.logf("[pattern] dropped update for %s: %v", Key(category, agentID), err)
	}
	return nil
}

// Record appends an execution record, absorbing write failures.
func (d *Degrading) Record(rec models.ExecutionRecord) error {
	if err := d.inner.Record(rec); err != nil {
		d.logf("[pattern] dropped execution record for task %s: %v", rec.TaskID, err)
	}
	return nil
}

// RecordsForTask returns the inner history, degrading to an empty history.
func (d *Degrading) RecordsForTask(taskID string) ([]models.ExecutionRecord, error) {
	records, err := d.inner.RecordsForTask(taskID)
	if err != nil {
		d.logf("[pattern] store unavailable for task %s history: %v", taskID, err)
		return nil, nil
	}
	return records, nil
}

// All returns the inner patterns, degrading to an empty list.
func (d *Degrading) All() ([]models.Pattern, error) {
	patterns, err := d.inner.All()
	if err != nil {
		d.logf("[pattern] store unavailable for pattern listing: %v", err)
		return nil, nil
	}
	return patterns, nil
}

// Close closes the inner store.
func (d *Degrading) Close() error {
	return d.inner.Close()
}

// Verify Degrading implements Store at compile time.
var _ Store = (*Degrading)(nil)

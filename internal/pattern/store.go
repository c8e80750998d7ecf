// Package pattern provides persisted learning statistics keyed by
// (task category, agent) pairs. Stores merge updates atomically per key;
// readers never observe a blind overwrite.
package pattern

import (
	"time"

	"github.com/ShayCichocki/hive/pkg/models"
)

// Store is the persistence boundary for learned (category, agent) statistics
// and the append-only execution record history.
type Store interface {
	// Get returns the pattern for the key, or a default-zero pattern when
	// the key has never been observed. An error indicates the backing store
	// is unavailable, not a missing key.
	Get(category, agentID string) (*models.Pattern, error)

	// Update merges one execution outcome into the key's pattern atomically.
	// Counts only ever grow; the duration average is an EMA with the store's alpha.
	Update(category, agentID string, success bool, duration time.Duration) error

	// Record appends an execution record. Records are immutable once appended.
	Record(rec models.ExecutionRecord) error

	// RecordsForTask returns the append-order execution history of a task.
	RecordsForTask(taskID string) ([]models.ExecutionRecord, error)

	// All returns every stored pattern, for reporting and snapshots.
	All() ([]models.Pattern, error)

	// Close releases store resources.
	Close() error
}

// Restorer is implemented by stores that can bulk-import patterns,
// used by snapshot restore.
type Restorer interface {
	// Import replaces or merges the given patterns into the store.
	Import(patterns []models.Pattern) error
}

// Key renders the persistence key for a (category, agent) pair.
// External backing stores index records by this string.
func Key(category, agentID string) string {
	return category + "|" + agentID
}

package pattern

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ShayCichocki/hive/pkg/models"
)

// Snapshot is a point-in-time export of learned patterns and the task table,
// implementable by any persistent backend.
type Snapshot struct {
	// SavedAt is when the snapshot was taken.
	SavedAt time.Time `json:"saved_at"`
	// Patterns is the full pattern table.
	Patterns []models.Pattern `json:"patterns"`
	// Tasks is the task table at snapshot time.
	Tasks []*models.Task `json:"tasks,omitempty"`
}

// TakeSnapshot exports the store's patterns together with the given tasks.
func TakeSnapshot(store Store, tasks []*models.Task) (*Snapshot, error) {
	patterns, err := store.All()
	if err != nil {
		return nil, fmt.Errorf("export patterns: %w", err)
	}
	return &Snapshot{
		SavedAt:  time.Now(),
		Patterns: patterns,
		Tasks:    tasks,
	}, nil
}

// WriteSnapshot writes a snapshot as JSON to the given path, creating parent
// directories as needed.
func WriteSnapshot(snap *Snapshot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a snapshot from a JSON file.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, nil
}

// Restore imports a snapshot's patterns into a store that supports bulk import.
func Restore(store Store, snap *Snapshot) error {
	restorer, ok := store.(Restorer)
	if !ok {
		return fmt.Errorf("store does not support restore")
	}
	if err := restorer.Import(snap.Patterns); err != nil {
		return fmt.Errorf("import patterns: %w", err)
	}
	return nil
}

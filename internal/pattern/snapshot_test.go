package pattern

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/hive/pkg/models"
)

func TestSnapshotRoundTrip(t *testing.T) {
	store := NewMemoryStore(0.2)
	if err := store.Update("analyze", "a1", true, 100*time.Millisecond); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.Update("test", "a2", false, 200*time.Millisecond); err != nil {
		t.Fatalf("Update: %v", err)
	}

	tasks := []*models.Task{
		{ID: "t1", Category: "analyze", State: models.TaskStateCompleted},
	}

	snap, err := TakeSnapshot(store, tasks)
	if err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}
	if len(snap.Patterns) != 2 {
		t.Fatalf("expected 2 patterns in snapshot, got %d", len(snap.Patterns))
	}

	path := filepath.Join(t.TempDir(), "snap.json")
	if err := WriteSnapshot(snap, path); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	loaded, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(loaded.Patterns) != 2 || len(loaded.Tasks) != 1 {
		t.Fatalf("snapshot lost data: %d patterns, %d tasks", len(loaded.Patterns), len(loaded.Tasks))
	}

	restored := NewMemoryStore(0.2)
	if err := Restore(restored, loaded); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	p, err := restored.Get("analyze", "a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.SuccessCount != 1 {
		t.Errorf("expected restored success count 1, got %d", p.SuccessCount)
	}
}

func TestRestoreRequiresRestorer(t *testing.T) {
	if err := Restore(&brokenStore{}, &Snapshot{}); err == nil {
		t.Error("expected error restoring into a store without bulk import")
	}
}

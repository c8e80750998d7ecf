package models

import (
	"testing"
	"time"
)

func TestTaskStateValid(t *testing.T) {
	valid := []TaskState{
		TaskStateCreated, TaskStateAssigned, TaskStateExecuting,
		TaskStateCompleted, TaskStateFailed,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}

	if TaskState("bogus").Valid() {
		t.Error("expected unknown state to be invalid")
	}
}

func TestTaskStateTerminal(t *testing.T) {
	if !TaskStateCompleted.Terminal() {
		t.Error("completed should be terminal")
	}
	if !TaskStateFailed.Terminal() {
		t.Error("failed should be terminal")
	}
	if TaskStateCreated.Terminal() {
		t.Error("created should not be terminal")
	}
	if TaskStateExecuting.Terminal() {
		t.Error("executing should not be terminal")
	}
}

func TestTaskClone(t *testing.T) {
	at := time.Now()
	task := &Task{
		ID:          "t-1",
		Category:    "analyze",
		State:       TaskStateCompleted,
		CompletedAt: &at,
	}

	clone := task.Clone()
	if clone.ID != task.ID || clone.Category != task.Category {
		t.Error("clone should copy scalar fields")
	}
	if clone.CompletedAt == task.CompletedAt {
		t.Error("clone should not share the CompletedAt pointer")
	}
	if !clone.CompletedAt.Equal(at) {
		t.Error("clone should preserve the CompletedAt value")
	}
}

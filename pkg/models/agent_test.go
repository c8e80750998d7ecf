package models

import "testing"

func TestAgentHasCapability(t *testing.T) {
	agent := &Agent{
		ID:           "code_analyzer",
		Capabilities: []string{"analyze", "lint"},
	}

	if !agent.HasCapability("analyze") {
		t.Error("expected agent to have analyze capability")
	}
	if agent.HasCapability("deploy") {
		t.Error("expected agent to lack deploy capability")
	}
}

func TestAgentClone(t *testing.T) {
	agent := &Agent{
		ID:           "a-1",
		Capabilities: []string{"analyze"},
	}

	clone := agent.Clone()
	clone.Capabilities[0] = "mutated"

	if agent.Capabilities[0] != "analyze" {
		t.Error("clone should not share the capability slice")
	}
}

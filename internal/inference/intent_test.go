package inference

import (
	"testing"
)

func TestDecodeReply(t *testing.T) {
	reply, err := decodeReply(`{"action": "analyze_code", "target": "src/", "confidence": 0.85}`)
	if err != nil {
		t.Fatalf("decodeReply: %v", err)
	}
	if reply.Action != "analyze_code" || reply.Target != "src/" || reply.Confidence != 0.85 {
		t.Errorf("unexpected reply: %+v", reply)
	}
}

func TestDecodeReplyWithFences(t *testing.T) {
	text := "```json\n{\"action\": \"run_tests\", \"target\": \"pkg\", \"confidence\": 0.7}\n```"
	reply, err := decodeReply(text)
	if err != nil {
		t.Fatalf("decodeReply: %v", err)
	}
	if reply.Action != "run_tests" || reply.Target != "pkg" {
		t.Errorf("unexpected reply: %+v", reply)
	}
}

func TestDecodeReplyClampsConfidence(t *testing.T) {
	reply, err := decodeReply(`{"action": "status", "confidence": 1.7}`)
	if err != nil {
		t.Fatalf("decodeReply: %v", err)
	}
	if reply.Confidence != 1 {
		t.Errorf("confidence should clamp to 1, got %f", reply.Confidence)
	}

	reply, err = decodeReply(`{"action": "status", "confidence": -0.3}`)
	if err != nil {
		t.Fatalf("decodeReply: %v", err)
	}
	if reply.Confidence != 0 {
		t.Errorf("confidence should clamp to 0, got %f", reply.Confidence)
	}
}

func TestDecodeReplyErrors(t *testing.T) {
	if _, err := decodeReply("no json here"); err == nil {
		t.Error("expected error for missing JSON")
	}
	if _, err := decodeReply(`{"action": bad}`); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestDecodeReplyDefaultsAction(t *testing.T) {
	reply, err := decodeReply(`{"confidence": 0.5}`)
	if err != nil {
		t.Fatalf("decodeReply: %v", err)
	}
	if reply.Action != "unknown" {
		t.Errorf("empty action should default to unknown, got %q", reply.Action)
	}
}

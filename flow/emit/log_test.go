package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogEmitter_TextMode(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{
		ThreadID: "t1",
		Step:     2,
		StepID:   "tokenize-card",
		Msg:      "step_completed",
	})

	out := buf.String()
	for _, want := range []string{"step_completed", "t1", "step=2", "tokenize-card"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}

func TestLogEmitter_JSONMode(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(Event{
		ThreadID: "t1",
		Step:     1,
		StepID:   "dispatch",
		Msg:      "suspended",
		Meta:     map[string]interface{}{"reason": "awaiting_otp"},
	})

	var decoded Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.ThreadID != "t1" || decoded.Msg != "suspended" {
		t.Errorf("unexpected decoded event %+v", decoded)
	}
	if decoded.Meta["reason"] != "awaiting_otp" {
		t.Errorf("expected meta reason, got %v", decoded.Meta)
	}
}

func TestLogEmitter_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(Event{ThreadID: "t1", Msg: "a"})
	emitter.Emit(Event{ThreadID: "t1", Msg: "b"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d", len(lines))
	}
	for _, line := range lines {
		var decoded Event
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Errorf("line %q is not valid JSON: %v", line, err)
		}
	}
}

func TestNullEmitter_Noop(t *testing.T) {
	emitter := NewNullEmitter()
	// Must not panic, even with meta attached.
	emitter.Emit(Event{ThreadID: "t1", Msg: "anything", Meta: map[string]interface{}{"k": "v"}})
}

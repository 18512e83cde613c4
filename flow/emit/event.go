package emit

// Event represents an observability event emitted during workflow
// execution.
//
// Events provide insight into engine behavior:
//   - Step execution completed
//   - Execution suspended at an interrupt step
//   - Workflow reached a terminal step
//   - Checkpoint conflicts and errors
//
// Events are emitted to an Emitter which can log to stdout/stderr,
// create OpenTelemetry spans, or buffer for post-execution analysis.
type Event struct {
	// ThreadID identifies the workflow thread that emitted this event.
	ThreadID string `json:"threadID"`

	// Step is the sequential step number within one Resume call
	// (1-indexed). Zero for resume-level events.
	Step int `json:"step"`

	// StepID identifies which step emitted this event.
	// Empty string for resume-level events.
	StepID string `json:"stepID"`

	// Msg is a short machine-friendly description of the event,
	// e.g. "step_completed", "suspended", "terminal".
	Msg string `json:"msg"`

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "reason": suspend reason tag
	//   - "duration_ms": step execution duration in milliseconds
	//   - "error": error details
	//   - "next_step": routing decision
	Meta map[string]interface{} `json:"meta"`
}

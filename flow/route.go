// Package flow provides a resumable, checkpointed workflow engine.
//
// A workflow is a set of named steps connected by a static route table.
// Execution can suspend indefinitely at interrupt steps awaiting
// external input (an OTP, a confirmation, a selection) and later resume
// exactly where it left off without re-running completed side effects.
package flow

// Next specifies where execution goes after a step completes.
//
// Two outcomes are supported:
//   - Goto: continue at a specific step (possibly the same one)
//   - Stop: terminal, the Resume call returns the final state
type Next struct {
	// To is the next step ID to execute. Empty when Terminal is set.
	To string

	// Terminal indicates workflow execution should stop.
	Terminal bool
}

// Stop returns a Next that terminates workflow execution.
func Stop() Next {
	return Next{Terminal: true}
}

// Goto returns a Next that routes to the specified step.
func Goto(stepID string) Next {
	return Next{To: stepID}
}

// RouterFn selects the next step from the current state.
//
// Routers must be pure: deterministic, no I/O, inspecting only fields
// already present in state. For a fixed state snapshot a router always
// returns the same Next. Unconditional edges are routers that ignore
// state (see To).
type RouterFn[S any] func(state S) Next

// To returns a RouterFn that unconditionally routes to stepID.
// It is the route-table entry for ordinary static edges.
func To[S any](stepID string) RouterFn[S] {
	return func(S) Next {
		return Goto(stepID)
	}
}

// Terminal returns a RouterFn that unconditionally stops the workflow.
func Terminal[S any]() RouterFn[S] {
	return func(S) Next {
		return Stop()
	}
}

package flow

import "context"

// Step represents a named unit of work in a resumable workflow.
// It receives the current state of type S, performs its logic, and
// returns a StepResult.
//
// Each step can:
//   - Inspect the merged workflow state
//   - Perform at most one external side effect (API call, tool call)
//   - Return a partial state update via Delta
//   - Suspend execution awaiting external input via Interrupt
//   - Report errors
//
// Steps never retain state between invocations; all cross-invocation
// memory lives in the state container. Side-effecting steps must begin
// with an idempotency guard: if the field the step is responsible for
// already holds a successful result, return an empty delta immediately.
// This makes steps safe to re-enter after a crash-and-resume or after a
// router self-loop.
//
// Type parameter S is the state type shared across the workflow.
type Step[S any] interface {
	// Run executes the step's logic with the given context and state.
	Run(ctx context.Context, state S) StepResult[S]
}

// StepResult represents the output of a step execution.
//
// A step either produces a partial state update (Delta), suspends
// awaiting external input (Interrupt), or fails (Err). An interrupt
// step may return Delta together with Interrupt; the engine merges the
// delta before persisting the suspension, which is how bounded-retry
// counters are advanced on each suspend.
type StepResult[S any] struct {
	// Delta is the partial state update produced by this step.
	// It is merged with the current state using the configured reducer.
	Delta S

	// Interrupt, when non-nil, suspends execution. The checkpoint is
	// persisted with the same next step, so a later Resume re-runs this
	// step from scratch; interrupt steps must therefore be side-effect
	// free until the awaited input is present.
	Interrupt *Interrupt

	// Err contains any error that occurred during step execution.
	// Non-nil errors halt the Resume call without a checkpoint write.
	Err error
}

// Interrupt signals that execution must suspend until the caller
// delivers awaited input on a subsequent Resume.
type Interrupt struct {
	// Reason tells the caller which input is awaited. The set of reason
	// tags is a closed enumeration defined by the interrupt steps.
	Reason Reason
}

// Reason identifies the input an interrupt step is waiting for.
// It is the only information a caller needs to choose a UI prompt.
type Reason string

// Suspend returns an Interrupt carrying the given reason.
func Suspend(reason Reason) *Interrupt {
	return &Interrupt{Reason: reason}
}

// StepFunc is a function adapter that implements the Step interface.
// It allows plain functions (typically closures over a dependency
// bundle) to act as steps without creating custom types.
//
// Example:
//
//	await := StepFunc[MyState](func(ctx context.Context, s MyState) StepResult[MyState] {
//	    if s.Token == "" {
//	        return StepResult[MyState]{Interrupt: Suspend("awaiting_token")}
//	    }
//	    return StepResult[MyState]{}
//	})
type StepFunc[S any] func(ctx context.Context, state S) StepResult[S]

// Run implements the Step interface for StepFunc.
func (f StepFunc[S]) Run(ctx context.Context, state S) StepResult[S] {
	return f(ctx, state)
}

// StepError represents an error that occurred during step execution.
type StepError struct {
	// Message is the human-readable error description.
	Message string

	// Code is a machine-readable error code for programmatic handling.
	Code string

	// StepID identifies which step produced this error.
	StepID string

	// Cause is the underlying error that caused this StepError.
	Cause error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	if e.StepID != "" {
		return "step " + e.StepID + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause error for error wrapping support.
func (e *StepError) Unwrap() error {
	return e.Cause
}

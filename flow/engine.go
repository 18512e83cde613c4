package flow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cardlink/flowkit/flow/emit"
	"github.com/cardlink/flowkit/flow/store"
)

// Engine orchestrates resumable workflow execution with checkpointing.
//
// The Engine is the core runtime that:
//   - Manages workflow topology (steps and the route table)
//   - Executes steps strictly sequentially within one Resume call
//   - Merges partial state updates via the reducer
//   - Persists exactly one checkpoint per step execution
//   - Suspends at interrupt steps and resumes from the persisted step
//   - Emits observability events and Prometheus metrics
//
// Different thread IDs are fully independent and may resume
// concurrently; the only shared mutable state is the checkpoint store,
// which rejects concurrent resumes of the same thread via its version
// compare-and-swap.
//
// Type parameter S is the state type shared across the workflow.
//
// Example:
//
//	engine, _ := flow.New(reducer, store.NewMemStore[MyState](), emit.NewNullEmitter())
//	engine.Add("greet", greetStep)
//	engine.Route("greet", flow.Terminal[MyState]())
//	engine.EntryAt("greet")
//
//	out, err := engine.Resume(ctx, "thread-1", MyState{Name: "sam"})
type Engine[S any] struct {
	mu sync.RWMutex

	// reducer merges partial state updates deterministically
	reducer Reducer[S]

	// steps maps step IDs to Step implementations
	steps map[string]Step[S]

	// routes maps step IDs to their router functions
	routes map[string]RouterFn[S]

	// entry is the root step executed for a thread with no checkpoint
	entry string

	// store persists checkpoints keyed by thread ID
	store store.Store[S]

	// emitter receives observability events
	emitter emit.Emitter

	// opts contains execution configuration
	opts Options
}

// Outcome is the result of a Resume call.
//
// Either the workflow reached a terminal router (Final is true and
// State holds the final state), or it suspended at an interrupt step
// (SuspendedAt and Reason are set; State holds the state as persisted).
type Outcome[S any] struct {
	// Final indicates the workflow reached a terminal route.
	Final bool

	// State is the merged state at the end of this Resume call.
	State S

	// SuspendedAt is the ID of the interrupt step awaiting input.
	// Empty when Final is true.
	SuspendedAt string

	// Reason tells the caller which input is awaited.
	Reason Reason
}

// New creates a new Engine with the given configuration.
//
// Parameters:
//   - reducer: merges partial state updates (required for Resume)
//   - st: checkpoint persistence backend (required for Resume)
//   - emitter: observability event receiver (optional, may be nil)
//   - opts: functional options (WithMaxStepsPerResume, WithMetrics)
//
// The constructor does not validate reducer/store to allow flexible
// initialization; validation occurs when Resume is called.
func New[S any](reducer Reducer[S], st store.Store[S], emitter emit.Emitter, opts ...Option) (*Engine[S], error) {
	cfg := engineConfig{}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	return &Engine[S]{
		reducer: reducer,
		steps:   make(map[string]Step[S]),
		routes:  make(map[string]RouterFn[S]),
		store:   st,
		emitter: emitter,
		opts:    cfg.opts,
	}, nil
}

// Add registers a step in the workflow.
//
// Step IDs must be unique and stable across process restarts; they are
// the resume pointers persisted in checkpoints.
func (e *Engine[S]) Add(stepID string, step Step[S]) error {
	if stepID == "" {
		return &EngineError{Message: "step ID cannot be empty"}
	}
	if step == nil {
		return &EngineError{Message: "step cannot be nil"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.steps[stepID]; exists {
		return &EngineError{
			Message: "duplicate step ID: " + stepID,
			Code:    "DUPLICATE_STEP",
		}
	}

	e.steps[stepID] = step
	return nil
}

// Route registers the router consulted after stepID completes.
//
// Every step that can complete without suspending needs a route table
// entry; a missing entry surfaces as EngineError code "NO_ROUTE" at
// execution time. The route table is static configuration built once
// at startup.
func (e *Engine[S]) Route(stepID string, router RouterFn[S]) error {
	if stepID == "" {
		return &EngineError{Message: "step ID cannot be empty"}
	}
	if router == nil {
		return &EngineError{Message: "router cannot be nil"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.routes[stepID]; exists {
		return &EngineError{
			Message: "duplicate route for step: " + stepID,
			Code:    "DUPLICATE_ROUTE",
		}
	}

	e.routes[stepID] = router
	return nil
}

// EntryAt sets the root step executed for threads with no checkpoint.
//
// The step must have been registered via Add. On a later Resume of a
// thread whose workflow terminated, execution re-enters here as well.
func (e *Engine[S]) EntryAt(stepID string) error {
	if stepID == "" {
		return &EngineError{Message: "entry step ID cannot be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.steps[stepID]; !exists {
		return &EngineError{
			Message: "entry step does not exist: " + stepID,
			Code:    "STEP_NOT_FOUND",
		}
	}

	e.entry = stepID
	return nil
}

// Resume drives a thread's workflow until it suspends or terminates.
//
// Execution:
//  1. Load the thread's checkpoint; if absent, initialize with the
//     entry step and zero state.
//  2. Merge inputDelta into state using the reducer.
//  3. Loop: execute the current step; on suspend, persist the
//     checkpoint with the same next step and return the suspend
//     reason; otherwise merge the delta, persist, consult the route
//     table, and advance. A terminal route persists and returns the
//     final state.
//
// Exactly one checkpoint write happens per step execution, and no
// suspension occurs between internally chained steps - only an
// explicit Interrupt yields control to the caller.
//
// A checkpoint version conflict (concurrent resume of the same
// thread) is surfaced as EngineError code "CHECKPOINT_CONFLICT"; the
// caller should retry the resume. Callers must serialize resumes per
// thread - the engine does not queue them.
func (e *Engine[S]) Resume(ctx context.Context, threadID string, inputDelta S) (Outcome[S], error) {
	var zero Outcome[S]

	if threadID == "" {
		return zero, &EngineError{Message: "thread ID cannot be empty"}
	}
	if e.reducer == nil {
		return zero, &EngineError{
			Message: "reducer is required",
			Code:    "MISSING_REDUCER",
		}
	}
	if e.store == nil {
		return zero, &EngineError{
			Message: "store is required",
			Code:    "MISSING_STORE",
		}
	}

	e.mu.RLock()
	entry := e.entry
	e.mu.RUnlock()

	if entry == "" {
		return zero, &EngineError{
			Message: "entry step not set (call EntryAt before Resume)",
			Code:    "NO_ENTRY_STEP",
		}
	}

	if e.opts.Metrics != nil {
		e.opts.Metrics.ResumeStarted()
		defer e.opts.Metrics.ResumeFinished()
	}

	// Load or initialize the checkpoint
	cp, err := e.store.Load(ctx, threadID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return zero, e.fail(&EngineError{
				Message: "failed to load checkpoint: " + err.Error(),
				Code:    "STORE_ERROR",
			})
		}
		cp = store.Checkpoint[S]{ThreadID: threadID, NextStep: entry}
	}
	if cp.NextStep == "" {
		cp.NextStep = entry
	}

	// Merge the caller's input delta
	cp.State = e.reducer(cp.State, inputDelta)

	maxSteps := e.opts.MaxStepsPerResume
	if maxSteps <= 0 {
		maxSteps = DefaultMaxStepsPerResume
	}

	// Execution loop
	for step := 1; ; step++ {
		if step > maxSteps {
			return zero, e.fail(&EngineError{
				Message: ErrMaxStepsExceeded.Error(),
				Code:    "MAX_STEPS_EXCEEDED",
			})
		}

		select {
		case <-ctx.Done():
			return zero, e.fail(ctx.Err())
		default:
		}

		current := cp.NextStep

		e.mu.RLock()
		impl, exists := e.steps[current]
		e.mu.RUnlock()

		if !exists {
			return zero, e.fail(&EngineError{
				Message: "step not found during execution: " + current,
				Code:    "STEP_NOT_FOUND",
			})
		}

		start := time.Now()
		result := impl.Run(ctx, cp.State)

		if result.Err != nil {
			if e.opts.Metrics != nil {
				e.opts.Metrics.RecordStepLatency(current, time.Since(start), "error")
			}
			return zero, e.fail(result.Err)
		}
		if e.opts.Metrics != nil {
			e.opts.Metrics.RecordStepLatency(current, time.Since(start), "success")
		}

		// Merge the step's partial update
		cp.State = e.reducer(cp.State, result.Delta)

		if result.Interrupt != nil {
			// Suspend: NextStep is unchanged so re-entry re-runs the
			// same step. Suspension happens logically before any side
			// effect, so re-running is safe.
			if err := e.save(ctx, &cp); err != nil {
				return zero, e.fail(err)
			}
			e.emit(emit.Event{
				ThreadID: threadID,
				Step:     step,
				StepID:   current,
				Msg:      "suspended",
				Meta:     map[string]interface{}{"reason": string(result.Interrupt.Reason)},
			})
			if e.opts.Metrics != nil {
				e.opts.Metrics.IncSuspends(string(result.Interrupt.Reason))
				e.opts.Metrics.IncResumes("suspended")
			}
			return Outcome[S]{
				State:       cp.State,
				SuspendedAt: current,
				Reason:      result.Interrupt.Reason,
			}, nil
		}

		e.mu.RLock()
		router, routed := e.routes[current]
		e.mu.RUnlock()

		if !routed {
			return zero, e.fail(&EngineError{
				Message: "no route from step: " + current,
				Code:    "NO_ROUTE",
			})
		}

		next := router(cp.State)

		if next.Terminal {
			// Re-enter at the root on a later resume of this thread.
			cp.NextStep = entry
			if err := e.save(ctx, &cp); err != nil {
				return zero, e.fail(err)
			}
			e.emit(emit.Event{
				ThreadID: threadID,
				Step:     step,
				StepID:   current,
				Msg:      "terminal",
			})
			if e.opts.Metrics != nil {
				e.opts.Metrics.IncResumes("final")
			}
			return Outcome[S]{Final: true, State: cp.State}, nil
		}

		cp.NextStep = next.To
		if err := e.save(ctx, &cp); err != nil {
			return zero, e.fail(err)
		}
		e.emit(emit.Event{
			ThreadID: threadID,
			Step:     step,
			StepID:   current,
			Msg:      "step_completed",
			Meta:     map[string]interface{}{"next_step": next.To},
		})
	}
}

// save persists the checkpoint with compare-and-swap on its version and
// advances the in-flight version counter on success.
func (e *Engine[S]) save(ctx context.Context, cp *store.Checkpoint[S]) error {
	err := e.store.Save(ctx, *cp, cp.Version)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			if e.opts.Metrics != nil {
				e.opts.Metrics.IncConflicts()
			}
			return &EngineError{
				Message: "concurrent resume detected for thread " + cp.ThreadID,
				Code:    "CHECKPOINT_CONFLICT",
			}
		}
		return &EngineError{
			Message: "failed to save checkpoint: " + err.Error(),
			Code:    "STORE_ERROR",
		}
	}
	cp.Version++
	return nil
}

// fail records an error outcome in metrics and passes the error through.
func (e *Engine[S]) fail(err error) error {
	if e.opts.Metrics != nil {
		e.opts.Metrics.IncResumes("error")
	}
	return err
}

// emit sends an event if an emitter is configured.
func (e *Engine[S]) emit(event emit.Event) {
	if e.emitter != nil {
		e.emitter.Emit(event)
	}
}

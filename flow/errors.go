package flow

import "errors"

// ErrMaxStepsExceeded indicates that a single Resume call reached the
// maximum allowed step count without suspending or terminating. This
// prevents infinite routing loops from a misconfigured route table.
var ErrMaxStepsExceeded = errors.New("resume exceeded maximum steps limit")

// EngineError represents an error from Engine operations.
//
// Codes used by the engine:
//   - MISSING_REDUCER, MISSING_STORE, NO_ENTRY_STEP: configuration
//     errors surfaced when Resume is called
//   - DUPLICATE_STEP, STEP_NOT_FOUND, NO_ROUTE: graph wiring errors
//   - MAX_STEPS_EXCEEDED: routing loop guard tripped
//   - STORE_ERROR: checkpoint persistence failed
//   - CHECKPOINT_CONFLICT: a concurrent resume of the same thread won
//     the checkpoint write; the caller should retry the resume
//   - UNAVAILABLE: a panic was recovered by middleware; generic
//     "try again later" outcome with no state mutation
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// IsConflict reports whether err is a checkpoint version conflict from
// a concurrent resume of the same thread. Callers should serialize
// resumes per thread; on conflict the losing call may safely be retried.
func IsConflict(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == "CHECKPOINT_CONFLICT"
	}
	return false
}

package flow

// Reducer merges a partial state update (delta) into the previous
// state, producing the next state.
//
// The reducer realizes the per-field merge rules of the state
// container. The common rules, available as helpers below:
//
//   - replace-if-set: take the delta's value only when the delta
//     explicitly sets it, so a delta that omits a field never erases it
//     (ReplaceIfSet, KeepExisting)
//   - append: concatenate lists such as the message log, ordered by
//     step execution order (Append)
//   - max: take the numeric maximum, used for monotonically increasing
//     counters such as retry counts and UI-refresh signals (Max)
//
// Replace and max rules are idempotent: applying the same delta twice
// is safe. Append is not, which is why steps that append must be
// idempotency-guarded rather than re-invoked on resume.
//
// Reducers must be deterministic and side-effect free.
type Reducer[S any] func(prev, delta S) S

// ReplaceIfSet returns delta when it is non-zero, otherwise prev.
// This is the replace-if-set merge rule for comparable scalar fields.
func ReplaceIfSet[T comparable](prev, delta T) T {
	var zero T
	if delta != zero {
		return delta
	}
	return prev
}

// KeepExisting returns delta when it is non-nil, otherwise prev.
// This is the replace-if-set merge rule for pointer-typed fields,
// where nil in the delta means "not set".
func KeepExisting[T any](prev, delta *T) *T {
	if delta != nil {
		return delta
	}
	return prev
}

// Append concatenates delta onto prev, preserving order.
func Append[T any](prev, delta []T) []T {
	if len(delta) == 0 {
		return prev
	}
	out := make([]T, 0, len(prev)+len(delta))
	out = append(out, prev...)
	return append(out, delta...)
}

// Max returns the larger of prev and delta. Counters merged with Max
// only ever move forward, so re-delivering a delta cannot double-count.
func Max(prev, delta int) int {
	if delta > prev {
		return delta
	}
	return prev
}

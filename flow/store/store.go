// Package store provides checkpoint persistence for resumable workflows.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no checkpoint exists for a thread ID.
var ErrNotFound = errors.New("checkpoint not found")

// ErrConflict is returned when a Save loses a compare-and-swap race:
// the stored version no longer matches the expected version, meaning a
// concurrent resume of the same thread committed first. The engine
// never silently overwrites on conflict.
var ErrConflict = errors.New("checkpoint version conflict")

// Checkpoint is a durable snapshot of one thread's workflow execution:
// the merged state container plus the identifier of the next step to
// run. It is everything needed to resume exactly where execution left
// off.
//
// Type parameter S is the state type (must be JSON-serializable for
// the durable store implementations).
type Checkpoint[S any] struct {
	// ThreadID identifies the conversation/thread this checkpoint
	// belongs to. Different threads are fully independent.
	ThreadID string `json:"thread_id"`

	// State is the merged state container after the last completed step.
	State S `json:"state"`

	// NextStep is the resume pointer: the step ID to execute on the
	// next Resume call. Step IDs are stable across process restarts.
	NextStep string `json:"next_step"`

	// Version is a monotonically increasing counter incremented on
	// every write, used for optimistic detection of concurrent resumes
	// on the same thread. Zero means "never persisted".
	Version int `json:"version"`

	// UpdatedAt records when this checkpoint was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists checkpoints keyed by thread ID.
//
// Implementations must provide at least per-key atomic
// read-modify-write: a mutex-guarded map suffices in a single process;
// a durable store needs compare-and-swap on the version counter to
// reject concurrent resumes of the same thread.
//
// The engine performs exactly one Save per step execution and never
// deletes checkpoints; callers may garbage-collect old threads.
type Store[S any] interface {
	// Load retrieves the checkpoint for a thread.
	// Returns ErrNotFound if the thread has never been persisted.
	Load(ctx context.Context, threadID string) (Checkpoint[S], error)

	// Save persists a checkpoint if and only if the stored version
	// equals expectedVersion (zero for a thread with no checkpoint).
	// On success the stored version becomes expectedVersion+1.
	// Returns ErrConflict if another writer committed first.
	Save(ctx context.Context, cp Checkpoint[S], expectedVersion int) error
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemStore is an in-memory implementation of Store[S].
//
// It keeps one checkpoint per thread in a mutex-guarded map. Designed
// for:
//   - Testing and development
//   - Single-process deployments
//   - Short-lived workflows where durability isn't required
//
// MemStore is thread-safe and enforces the same version compare-and-
// swap semantics as the durable stores, so conflict handling can be
// exercised without a database.
//
// Checkpoint state is deep-copied on both Load and Save (JSON round
// trip), so callers never share mutable state with the store.
//
// Type parameter S is the state type to persist.
type MemStore[S any] struct {
	mu          sync.RWMutex
	checkpoints map[string]Checkpoint[S] // threadID -> checkpoint
}

// NewMemStore creates a new in-memory checkpoint store.
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{
		checkpoints: make(map[string]Checkpoint[S]),
	}
}

// Load retrieves the checkpoint for a thread.
//
// Returns ErrNotFound if the thread has never been saved. The returned
// checkpoint's state is an independent copy.
func (m *MemStore[S]) Load(_ context.Context, threadID string) (Checkpoint[S], error) {
	m.mu.RLock()
	cp, exists := m.checkpoints[threadID]
	m.mu.RUnlock()

	if !exists {
		var zero Checkpoint[S]
		return zero, ErrNotFound
	}

	state, err := deepCopy(cp.State)
	if err != nil {
		var zero Checkpoint[S]
		return zero, fmt.Errorf("failed to copy checkpoint state: %w", err)
	}
	cp.State = state

	return cp, nil
}

// Save persists a checkpoint with compare-and-swap on the version.
//
// expectedVersion must match the currently stored version (zero when
// the thread has no checkpoint yet). On success the stored version is
// expectedVersion+1. Returns ErrConflict on mismatch.
func (m *MemStore[S]) Save(_ context.Context, cp Checkpoint[S], expectedVersion int) error {
	state, err := deepCopy(cp.State)
	if err != nil {
		return fmt.Errorf("failed to copy checkpoint state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current := 0
	if existing, exists := m.checkpoints[cp.ThreadID]; exists {
		current = existing.Version
	}
	if current != expectedVersion {
		return ErrConflict
	}

	cp.State = state
	cp.Version = expectedVersion + 1
	cp.UpdatedAt = time.Now().UTC()
	m.checkpoints[cp.ThreadID] = cp

	return nil
}

// Delete removes a thread's checkpoint. The engine never calls this;
// it exists for callers that garbage-collect finished threads.
func (m *MemStore[S]) Delete(_ context.Context, threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checkpoints, threadID)
}

// deepCopy creates a deep copy of state S using a JSON round trip.
//
// This works for any Go type that can be JSON-marshaled: primitives,
// structs with exported fields, slices, maps, and pointers (values are
// copied, not addresses). Unexported fields and non-marshalable types
// (channels, funcs) are not supported; the durable stores have the
// same requirement.
func deepCopy[S any](state S) (S, error) {
	var zero S

	data, err := json.Marshal(state)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal state: %w", err)
	}

	var copied S
	if err := json.Unmarshal(data, &copied); err != nil {
		return zero, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return copied, nil
}

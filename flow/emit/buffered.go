package emit

import (
	"sync"

	"github.com/google/uuid"
)

// BufferedEmitter implements Emitter by storing events in memory.
//
// This emitter captures all events and provides query capabilities for
// execution history analysis. Events are organized by thread ID for
// efficient retrieval and filtering, and each captured event is tagged
// with a unique event ID in its Meta map (key "event_id").
//
// Use cases:
//   - Development and debugging
//   - Testing and validation
//   - Post-execution analysis of a thread's suspend/resume history
//
// The buffer is bounded per thread: once a thread accumulates
// DefaultMaxEventsPerThread events, the oldest are dropped. Call Clear
// for finished threads to release memory eagerly.
type BufferedEmitter struct {
	mu        sync.RWMutex
	events    map[string][]Event // threadID -> events
	maxEvents int
}

// DefaultMaxEventsPerThread bounds the per-thread event buffer.
const DefaultMaxEventsPerThread = 1000

// HistoryFilter specifies criteria for filtering execution history.
//
// All fields are optional; set fields are combined with AND logic.
type HistoryFilter struct {
	StepID  string // filter by step ID (empty = no filter)
	Msg     string // filter by message (empty = no filter)
	MinStep *int   // minimum step number (nil = no filter)
	MaxStep *int   // maximum step number (nil = no filter)
}

// NewBufferedEmitter creates a new BufferedEmitter with the default
// per-thread buffer bound.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events:    make(map[string][]Event),
		maxEvents: DefaultMaxEventsPerThread,
	}
}

// NewBufferedEmitterWithLimit creates a BufferedEmitter that keeps at
// most maxEvents events per thread, dropping the oldest beyond that.
// maxEvents <= 0 falls back to DefaultMaxEventsPerThread.
func NewBufferedEmitterWithLimit(maxEvents int) *BufferedEmitter {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEventsPerThread
	}
	return &BufferedEmitter{
		events:    make(map[string][]Event),
		maxEvents: maxEvents,
	}
}

// Emit stores an event in the buffer, tagging it with a unique event ID.
// Thread-safe.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if event.Meta == nil {
		event.Meta = make(map[string]interface{})
	}
	if _, ok := event.Meta["event_id"]; !ok {
		event.Meta["event_id"] = uuid.NewString()
	}

	buf := append(b.events[event.ThreadID], event)
	if over := len(buf) - b.maxEvents; over > 0 {
		buf = buf[over:]
	}
	b.events[event.ThreadID] = buf
}

// GetHistory retrieves all events for a thread in emission order.
//
// Returns a copy; callers may not mutate the buffer through it.
func (b *BufferedEmitter) GetHistory(threadID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[threadID]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// GetHistoryWithFilter retrieves events for a thread matching the
// filter criteria, in emission order.
func (b *BufferedEmitter) GetHistoryWithFilter(threadID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for _, event := range b.events[threadID] {
		if filter.StepID != "" && event.StepID != filter.StepID {
			continue
		}
		if filter.Msg != "" && event.Msg != filter.Msg {
			continue
		}
		if filter.MinStep != nil && event.Step < *filter.MinStep {
			continue
		}
		if filter.MaxStep != nil && event.Step > *filter.MaxStep {
			continue
		}
		out = append(out, event)
	}
	return out
}

// Clear removes all buffered events for a thread.
func (b *BufferedEmitter) Clear(threadID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.events, threadID)
}

// ClearAll removes all buffered events for all threads.
func (b *BufferedEmitter) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make(map[string][]Event)
}

package intent

import (
	"context"
	"sync"
)

// MockExtractor is a scripted Extractor for tests.
//
// Intents are returned in order; the last one sticks once the queue is
// exhausted. When Err is set it is returned for every call instead.
type MockExtractor struct {
	mu      sync.Mutex
	Intents []*Intent
	Err     error
	calls   int
}

// Extract implements Extractor by replaying scripted intents.
func (m *MockExtractor) Extract(_ context.Context, messages []string) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Intents) == 0 {
		return &Intent{MessageCount: len(messages)}, nil
	}

	next := m.Intents[0]
	if len(m.Intents) > 1 {
		m.Intents = m.Intents[1:]
	}
	if next != nil && next.MessageCount == 0 {
		cp := *next
		cp.MessageCount = len(messages)
		return &cp, nil
	}
	return next, nil
}

// CallCount returns how many times Extract was invoked.
func (m *MockExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

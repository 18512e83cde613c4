package payapi

import (
	"context"
	"fmt"
	"sync"
)

// MockResponse is one scripted reply for an operation.
type MockResponse struct {
	Result map[string]interface{}
	Err    error
}

// MockCall records one invocation received by the mock.
type MockCall struct {
	Op      string
	Payload map[string]interface{}
}

// MockClient is a scripted Client for tests.
//
// Responses are queued per operation with Script; each call pops the
// next response, and the last queued response sticks once the queue is
// exhausted. Calls are recorded for assertion via Calls and CallCount.
//
// Thread-safe.
type MockClient struct {
	mu        sync.Mutex
	responses map[string][]MockResponse
	calls     []MockCall
}

// NewMockClient creates an empty MockClient. Calling an operation with
// no scripted response returns an error, surfacing missing test setup.
func NewMockClient() *MockClient {
	return &MockClient{
		responses: make(map[string][]MockResponse),
	}
}

// Script queues a response for the given operation.
func (m *MockClient) Script(op string, result map[string]interface{}, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[op] = append(m.responses[op], MockResponse{Result: result, Err: err})
}

// Call implements Client by replaying scripted responses.
func (m *MockClient) Call(_ context.Context, op string, payload map[string]interface{}) (map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{Op: op, Payload: payload})

	queue := m.responses[op]
	if len(queue) == 0 {
		return nil, fmt.Errorf("no scripted response for operation %q", op)
	}

	resp := queue[0]
	if len(queue) > 1 {
		m.responses[op] = queue[1:]
	}
	return resp.Result, resp.Err
}

// Calls returns a copy of all recorded invocations in order.
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times the given operation was invoked.
func (m *MockClient) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

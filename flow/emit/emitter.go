// Package emit provides observability events and emitters for the
// workflow engine.
package emit

// Emitter receives and processes observability events from workflow
// execution.
//
// Emitters enable pluggable observability backends:
//   - Logging: stdout, files, syslog
//   - Distributed tracing: OpenTelemetry
//   - In-memory capture for tests and debugging
//
// Implementations should be:
//   - Non-blocking: avoid slowing down workflow execution
//   - Thread-safe: may be called concurrently from multiple threads
//   - Resilient: handle failures gracefully (never crash the workflow)
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	//
	// Emit should not panic and should not block; if the backend is
	// unavailable or slow, events should be buffered or dropped with
	// internal error logging.
	Emit(event Event)
}

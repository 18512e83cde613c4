package flow

// Options configures Engine execution behavior.
//
// Zero values are valid - the Engine will use sensible defaults.
type Options struct {
	// MaxStepsPerResume limits how many steps one Resume call may
	// execute before it is aborted with ErrMaxStepsExceeded. This
	// prevents infinite routing loops from a misconfigured route
	// table. If 0, DefaultMaxStepsPerResume is used.
	MaxStepsPerResume int

	// Metrics receives Prometheus metrics updates. Optional.
	Metrics *PrometheusMetrics
}

// DefaultMaxStepsPerResume bounds one Resume call. A resume normally
// executes a handful of steps before suspending or terminating; a
// workflow that legitimately chains more steps should raise the limit
// via WithMaxStepsPerResume.
const DefaultMaxStepsPerResume = 50

// Option is a functional option for configuring an Engine.
//
// Example:
//
//	engine := flow.New(reducer, st, emitter,
//	    flow.WithMaxStepsPerResume(100),
//	    flow.WithMetrics(metrics),
//	)
type Option func(*engineConfig) error

// engineConfig collects options before applying them to an Engine.
// The indirection allows validation and composition of options.
type engineConfig struct {
	opts Options
}

// WithMaxStepsPerResume limits the number of steps executed in one
// Resume call.
//
// When exceeded, Resume returns EngineError with code
// "MAX_STEPS_EXCEEDED". No checkpoint is written for the step that
// tripped the limit.
func WithMaxStepsPerResume(n int) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.MaxStepsPerResume = n
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection.
//
// All metrics are automatically updated during Resume execution.
func WithMetrics(metrics *PrometheusMetrics) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.Metrics = metrics
		return nil
	}
}

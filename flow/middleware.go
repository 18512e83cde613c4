package flow

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"
)

// ResumeFunc is the terminal function a middleware chain wraps: it
// resumes a thread with an input delta and returns the outcome. The
// Engine's Resume method satisfies this shape via a method value.
type ResumeFunc[S any] func(ctx context.Context, threadID string, delta S) (Outcome[S], error)

// Middleware wraps a ResumeFunc with cross-cutting logic. Middleware
// MUST call next to continue the chain unless intentionally
// short-circuiting.
type Middleware[S any] func(next ResumeFunc[S]) ResumeFunc[S]

// Chain composes multiple middleware into one ResumeFunc around base.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(base, logging, recover) executes as
//
//	logging -> recover -> base
func Chain[S any](base ResumeFunc[S], mws ...Middleware[S]) ResumeFunc[S] {
	h := base
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recover returns middleware that recovers from panics in the chain
// below it. Panics are logged with a stack trace and converted to an
// EngineError with code "UNAVAILABLE" so callers see a regular error
// instead of a crashed process.
func Recover[S any](logger *slog.Logger) Middleware[S] {
	return func(next ResumeFunc[S]) ResumeFunc[S] {
		return func(ctx context.Context, threadID string, delta S) (out Outcome[S], retErr error) {
			defer func() {
				if r := recover(); r != nil {
					if logger != nil {
						logger.Error("resume panicked",
							slog.String("thread_id", threadID),
							slog.Any("panic", r),
							slog.String("stack", string(debug.Stack())),
						)
					}
					out = Outcome[S]{}
					retErr = &EngineError{
						Message: "panic during resume of thread " + threadID,
						Code:    "UNAVAILABLE",
					}
				}
			}()
			return next(ctx, threadID, delta)
		}
	}
}

// Logging returns middleware that logs resume start and completion with
// duration and outcome.
func Logging[S any](logger *slog.Logger) Middleware[S] {
	return func(next ResumeFunc[S]) ResumeFunc[S] {
		return func(ctx context.Context, threadID string, delta S) (Outcome[S], error) {
			logger.Info("resume started",
				slog.String("thread_id", threadID),
			)

			start := time.Now()
			out, err := next(ctx, threadID, delta)
			elapsed := time.Since(start)

			switch {
			case err != nil:
				logger.Error("resume failed",
					slog.String("thread_id", threadID),
					slog.Duration("elapsed", elapsed),
					slog.String("error", err.Error()),
				)
			case out.Final:
				logger.Info("resume finished",
					slog.String("thread_id", threadID),
					slog.Duration("elapsed", elapsed),
					slog.String("outcome", "final"),
				)
			default:
				logger.Info("resume suspended",
					slog.String("thread_id", threadID),
					slog.Duration("elapsed", elapsed),
					slog.String("suspended_at", out.SuspendedAt),
					slog.String("reason", string(out.Reason)),
				)
			}

			return out, err
		}
	}
}

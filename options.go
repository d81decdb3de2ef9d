package corelet

import "github.com/joeycumines/logiface"

// loopOptions holds configuration gathered by LoopOption values passed to
// NewEventLoop. None of these affect the invariants in spec.md; they are
// purely ambient (metrics, logging, pre-sizing) — the kind of surface the
// teacher package exposes via its own functional-options file.
type loopOptions struct {
	metricsEnabled bool
	queueCapacity  int
	logger         *logiface.Logger[*LogEvent]
}

// LoopOption configures an EventLoop at construction time.
type LoopOption interface {
	applyLoop(*loopOptions)
}

type loopOptionFunc func(*loopOptions)

func (f loopOptionFunc) applyLoop(o *loopOptions) { f(o) }

// WithMetrics enables the loop's built-in [Metrics] counters. Disabled by
// default, since the atomic increments are pure overhead for callers who
// never read Metrics().
func WithMetrics(enabled bool) LoopOption {
	return loopOptionFunc(func(o *loopOptions) {
		o.metricsEnabled = enabled
	})
}

// WithQueueCapacityHint pre-allocates the loop's pending-event slice to
// reduce reallocation during early bursts. Purely an optimization hint;
// the queue still grows unbounded beyond it.
func WithQueueCapacityHint(n int) LoopOption {
	return loopOptionFunc(func(o *loopOptions) {
		if n > 0 {
			o.queueCapacity = n
		}
	})
}

// WithLogger overrides the package-level logger (see SetLogger) for a
// single loop's own lifecycle logging (its "loop started" and "loop
// stopped" notices). A nil logger is equivalent to not passing
// this option at all — the loop falls back to the package-level logger.
func WithLogger(logger *logiface.Logger[*LogEvent]) LoopOption {
	return loopOptionFunc(func(o *loopOptions) {
		o.logger = logger
	})
}

func resolveLoopOptions(opts []LoopOption) *loopOptions {
	cfg := &loopOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyLoop(cfg)
	}
	return cfg
}

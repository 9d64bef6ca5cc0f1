package hostloop

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/windygo/actionscheduler"
)

type loopOptions struct {
	clock           Clock
	suspendEnabled  bool
	minSuspendDelay time.Duration
	rateLimiter     *rate.Limiter
	preSuspend      func()
	postSuspend     func()
	logger          actionscheduler.Logger
}

// Option configures a [Loop] at construction time.
type Option interface {
	apply(*loopOptions)
}

type optionFunc func(*loopOptions)

func (f optionFunc) apply(o *loopOptions) { f(o) }

// WithClock overrides the wall-clock source, primarily for tests.
func WithClock(c Clock) Option {
	return optionFunc(func(o *loopOptions) {
		if c != nil {
			o.clock = c
		}
	})
}

// WithSuspendEnabled controls whether [Loop.RunOnce] suspends at all when
// idle. Disabled by default: a caller must opt in once its Suspender is
// ready to be exercised.
func WithSuspendEnabled(enabled bool) Option {
	return optionFunc(func(o *loopOptions) { o.suspendEnabled = enabled })
}

// WithMinSuspendDelay sets the shortest idle period worth suspending for.
// Below this, RunOnce returns immediately rather than paying the
// enter/exit suspend overhead for a handful of milliseconds, mirroring the
// original's MIN_SUSPEND_TIME_DELAY guard.
func WithMinSuspendDelay(d time.Duration) Option {
	return optionFunc(func(o *loopOptions) { o.minSuspendDelay = d })
}

// WithSuspendRateLimit throttles how often the loop may enter a suspend
// cycle, for Suspenders whose enter/exit sequence has a real cost (e.g. a
// syscall with fixed latency) that shouldn't be paid on every short idle
// window.
func WithSuspendRateLimit(r *rate.Limiter) Option {
	return optionFunc(func(o *loopOptions) { o.rateLimiter = r })
}

// WithPreSuspendHook registers a callback run before the loop's final
// suspend-abort check and its call to Suspender.Suspend, with no lock held.
// Typical uses: flushing a UART, disabling a peripheral clock.
func WithPreSuspendHook(fn func()) Option {
	return optionFunc(func(o *loopOptions) { o.preSuspend = fn })
}

// WithPostSuspendHook registers a callback run immediately after the loop
// leaves Suspender.Suspend, whether or not it actually slept.
func WithPostSuspendHook(fn func()) Option {
	return optionFunc(func(o *loopOptions) { o.postSuspend = fn })
}

// WithLogger attaches a structured [actionscheduler.Logger] to the loop.
func WithLogger(l actionscheduler.Logger) Option {
	return optionFunc(func(o *loopOptions) {
		if l != nil {
			o.logger = l
		}
	})
}

func resolveOptions(opts []Option) loopOptions {
	o := loopOptions{
		clock:           systemClock{},
		suspendEnabled:  false,
		minSuspendDelay: 0,
		logger:          actionscheduler.NoopLogger(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(&o)
	}
	return o
}

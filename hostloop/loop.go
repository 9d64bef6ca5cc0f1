package hostloop

import (
	"context"
	"sync"
	"time"

	"github.com/windygo/actionscheduler"
)

// Loop drives an [actionscheduler.Engine] against wall-clock time: each
// iteration proceeds the engine by however long has actually elapsed since
// the last iteration, then idles through a [Suspender] until the next
// action is due or the idle period is interrupted.
type Loop struct {
	engine *actionscheduler.Engine

	mu              sync.Mutex
	clock           Clock
	suspender       Suspender
	lastSync        time.Time
	suspendEnabled  bool
	minSuspendDelay time.Duration
	rateLimiter     interface {
		Wait(context.Context) error
	}
	preSuspend  func()
	postSuspend func()
	logger      actionscheduler.Logger
	wakeLocks   int
	running     bool
}

// NewLoop constructs a Loop over engine, idling via suspender when
// suspension is enabled. If suspender is nil, [SleepSuspender] is used.
func NewLoop(engine *actionscheduler.Engine, suspender Suspender, opts ...Option) *Loop {
	o := resolveOptions(opts)
	if suspender == nil {
		suspender = SleepSuspender{}
	}
	var limiter interface {
		Wait(context.Context) error
	}
	if o.rateLimiter != nil {
		limiter = o.rateLimiter
	}
	return &Loop{
		engine:          engine,
		clock:           o.clock,
		suspender:       suspender,
		lastSync:        o.clock.Now(),
		suspendEnabled:  o.suspendEnabled,
		minSuspendDelay: o.minSuspendDelay,
		rateLimiter:     limiter,
		preSuspend:      o.preSuspend,
		postSuspend:     o.postSuspend,
		logger:          o.logger,
	}
}

// SetSuspendEnabled toggles whether RunOnce/Run attempt to suspend when
// idle. Safe to call while Run is active.
func (l *Loop) SetSuspendEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.suspendEnabled = enabled
}

// durationSinceTimelineBeginning returns the delay that must be added to a
// caller-supplied "from now" duration to get a delay relative to the
// engine's current head position.
//
// Between RunOnce calls, lastSync tracks real time exactly and
// ProceedingTime reads zero, so this is just clock.Now()-lastSync: the gap
// since the loop last synced. Called from inside a callback mid-Proceed,
// lastSync is still the value from the start of the in-progress iteration
// (RunOnce only updates it after Proceed returns) while ProceedingTime is
// live-tracking how much of that iteration's elapsed budget has been
// consumed firing earlier actions in the same batch — so the difference
// correctly yields the not-yet-consumed remainder, rather than
// double-counting time this batch has already accounted for.
func (l *Loop) durationSinceTimelineBeginning() time.Duration {
	l.mu.Lock()
	sync := l.lastSync
	l.mu.Unlock()
	return l.clock.Now().Sub(sync) - l.engine.ProceedingTime()
}

// ScheduleNow arms cb to run after delay measured from the current wall
// clock time, regardless of where the engine's timeline head currently is.
func (l *Loop) ScheduleNow(delay time.Duration, cb actionscheduler.Callback, arg any) actionscheduler.ActionHandle {
	return l.engine.ScheduleWithReload(l.durationSinceTimelineBeginning()+delay, delay, cb, arg)
}

// ScheduleNowWithReload is [Loop.ScheduleNow] with a reload distinct from
// the initial delay.
func (l *Loop) ScheduleNowWithReload(delay, reload time.Duration, cb actionscheduler.Callback, arg any) actionscheduler.ActionHandle {
	return l.engine.ScheduleWithReload(l.durationSinceTimelineBeginning()+delay, reload, cb, arg)
}

// Unschedule cancels a pending action. See [actionscheduler.Engine.Unschedule].
func (l *Loop) Unschedule(h *actionscheduler.ActionHandle) bool {
	return l.engine.Unschedule(h)
}

// UnscheduleAll cancels every pending action with the given callback. See
// [actionscheduler.Engine.UnscheduleAll].
func (l *Loop) UnscheduleAll(cb actionscheduler.Callback) bool {
	return l.engine.UnscheduleAll(cb)
}

// Engine returns the underlying engine, for callers that need direct
// access to ProceedingTime, IsCallbackArmed, etc.
func (l *Loop) Engine() *actionscheduler.Engine {
	return l.engine
}

// RunOnce performs a single iteration: it proceeds the engine by the real
// time elapsed since the previous call (or since construction, on the
// first call), then — if suspension is enabled — idles until the next due
// action or until ctx is cancelled.
func (l *Loop) RunOnce(ctx context.Context) error {
	l.mu.Lock()
	now := l.clock.Now()
	sync := l.lastSync
	l.mu.Unlock()

	// elapsed is derived from the same now sample that lastSync is updated
	// to below, so no real-time interval is proceeded twice or dropped
	// between iterations. A callback invoked from within this Proceed call
	// still sees the pre-iteration sync point and the live ProceedingTime
	// via durationSinceTimelineBeginning, since lastSync isn't updated
	// until after Proceed returns.
	elapsed := now.Sub(sync) - l.engine.ProceedingTime()
	l.engine.Proceed(elapsed)
	l.engine.ClearProceedingTime()

	l.mu.Lock()
	l.lastSync = now
	suspendEnabled := l.suspendEnabled
	l.mu.Unlock()

	if !suspendEnabled {
		return nil
	}
	delay := l.engine.NextEventDelay()
	return l.suspend(ctx, delay)
}

// Run repeatedly calls RunOnce until ctx is cancelled or a Suspender
// returns a non-context error. Only one Run may be active at a time.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	l.running = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.RunOnce(ctx); err != nil {
			return err
		}
	}
}

// suspend idles for up to delay, subject to the minimum-suspend-delay
// guard, an optional rate limit, the pre/post hooks, and a final abort
// check made after the pre-suspend hook: if a wake lock is held, or
// something scheduled a sooner action between computing delay and this
// check, the suspend is skipped entirely. No lock is held from that check
// through the Suspender call, so an action scheduled after the check does
// not cut the idle short.
func (l *Loop) suspend(ctx context.Context, delay time.Duration) error {
	l.mu.Lock()
	minDelay := l.minSuspendDelay
	l.mu.Unlock()

	if delay != actionscheduler.DelayInfinite && delay < minDelay {
		return nil
	}

	if l.rateLimiter != nil {
		if err := l.rateLimiter.Wait(ctx); err != nil {
			return err
		}
	}

	if l.preSuspend != nil {
		l.preSuspend()
	}

	abort := l.wakeLocked() || l.engine.NextEventDelay() < delay
	var err error
	if !abort {
		if l.logger.Enabled(actionscheduler.LevelDebug) {
			l.logger.Log(actionscheduler.Entry{Level: actionscheduler.LevelDebug, Message: "suspending", Slot: -1})
		}
		err = l.suspender.Suspend(ctx, delay)
	} else if l.logger.Enabled(actionscheduler.LevelDebug) {
		l.logger.Log(actionscheduler.Entry{Level: actionscheduler.LevelDebug, Message: "suspend aborted", Slot: -1})
	}

	if l.postSuspend != nil {
		l.postSuspend()
	}
	return err
}

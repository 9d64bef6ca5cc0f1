package hostloop

import (
	"context"
	"time"

	"github.com/windygo/actionscheduler"
)

// Clock abstracts wall-clock time so tests can control it. A [Loop] built
// without [WithClock] uses [time.Now], whose monotonic reading makes the
// elapsed-since-last-sync arithmetic correct even across a real suspend:
// unlike the embedded original, there is no separate RTC-vs-tick source to
// reconcile after waking.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Suspender performs the actual idle. Implementations range from a plain
// OS sleep to a real low-power/suspend syscall. d may be
// [actionscheduler.DelayInfinite], meaning "no action is pending, wait
// until something external wakes you" — implementations must treat that
// specially rather than attempting to sleep for the literal duration.
type Suspender interface {
	Suspend(ctx context.Context, d time.Duration) error
}

// SleepSuspender is a [Suspender] backed by an ordinary timer, suitable
// for hosted environments with no real low-power state to enter. It is
// the default used by [NewLoop] when no Suspender is supplied.
type SleepSuspender struct{}

func (SleepSuspender) Suspend(ctx context.Context, d time.Duration) error {
	if d == actionscheduler.DelayInfinite {
		<-ctx.Done()
		return ctx.Err()
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

//go:build unix

package main

import (
	"context"
	"time"

	"golang.org/x/sys/unix"

	"github.com/windygo/actionscheduler"
)

// unixSuspender idles via unix.Nanosleep, a real syscall rather than the
// Go runtime's timer wheel, standing in for the device-level low-power
// primitive the original firmware entered between actions.
type unixSuspender struct{}

func (unixSuspender) Suspend(ctx context.Context, d time.Duration) error {
	if d == actionscheduler.DelayInfinite {
		<-ctx.Done()
		return ctx.Err()
	}
	if d <= 0 {
		return nil
	}
	ts := unix.NsecToTimespec(d.Nanoseconds())
	rem := &unix.Timespec{}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := unix.Nanosleep(&ts, rem)
		if err == nil {
			return nil
		}
		if err != unix.EINTR {
			return err
		}
		ts = *rem
	}
}

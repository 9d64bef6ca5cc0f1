//go:build !unix

package main

import (
	"github.com/windygo/actionscheduler/hostloop"
)

// unixSuspender falls back to a plain timer on non-unix platforms; there is
// no real low-power primitive to exercise there.
type unixSuspender = hostloop.SleepSuspender

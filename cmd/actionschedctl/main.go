// Command actionschedctl runs a demo host loop over an actionscheduler
// engine, for exercising suspend/resume behavior against a real process
// rather than a test fake.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/windygo/actionscheduler"
	"github.com/windygo/actionscheduler/hostloop"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actionschedctl",
		Short: "Run a demo action-scheduler host loop",
		Long: `actionschedctl drives an actionscheduler.Engine through a
hostloop.Loop against wall-clock time, printing each action as it fires.
It exists to exercise suspend/resume behavior interactively, the way a
real embedded host loop would, rather than under a test fake.`,
	}
	cmd.AddCommand(runCmd())
	return cmd
}

func runCmd() *cobra.Command {
	var (
		capacity      int
		suspend       bool
		minSuspendMs  int
		suspendPerSec float64
		ticks         int
		tickEveryMs   int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Schedule a handful of reloading actions and run the loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(cmd.Context(), runConfig{
				capacity:      capacity,
				suspend:       suspend,
				minSuspendMs:  minSuspendMs,
				suspendPerSec: suspendPerSec,
				ticks:         ticks,
				tickEveryMs:   tickEveryMs,
			})
		},
	}

	cmd.Flags().IntVar(&capacity, "capacity", 16, "engine slot pool size")
	cmd.Flags().BoolVar(&suspend, "suspend", true, "idle via the unix suspender when no action is due")
	cmd.Flags().IntVar(&minSuspendMs, "min-suspend-ms", 5, "shortest idle period worth suspending for")
	cmd.Flags().Float64Var(&suspendPerSec, "suspend-rate", 20, "max suspend/resume cycles per second")
	cmd.Flags().IntVar(&ticks, "ticks", 5, "number of reload actions to print before exiting")
	cmd.Flags().IntVar(&tickEveryMs, "tick-every-ms", 200, "reload period, in milliseconds")

	return cmd
}

type runConfig struct {
	capacity      int
	suspend       bool
	minSuspendMs  int
	suspendPerSec float64
	ticks         int
	tickEveryMs   int
}

func runLoop(ctx context.Context, cfg runConfig) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := actionscheduler.NewTextLogger(os.Stderr, actionscheduler.LevelInfo)
	engine := actionscheduler.New(
		actionscheduler.WithCapacity(cfg.capacity),
		actionscheduler.WithLogger(logger),
	)

	var suspender hostloop.Suspender = hostloop.SleepSuspender{}
	if cfg.suspend {
		suspender = unixSuspender{}
	}

	loop := hostloop.NewLoop(engine, suspender,
		hostloop.WithSuspendEnabled(cfg.suspend),
		hostloop.WithMinSuspendDelay(time.Duration(cfg.minSuspendMs)*time.Millisecond),
		hostloop.WithSuspendRateLimit(rate.NewLimiter(rate.Limit(cfg.suspendPerSec), 1)),
		hostloop.WithLogger(logger),
	)

	done := make(chan struct{})
	count := 0
	var tick actionscheduler.Callback
	tick = func(arg any) actionscheduler.Result {
		count++
		fmt.Printf("tick %d/%d at %s\n", count, cfg.ticks, time.Now().Format(time.RFC3339Nano))
		if count >= cfg.ticks {
			close(done)
			return actionscheduler.Oneshot
		}
		return actionscheduler.Reload
	}
	period := time.Duration(cfg.tickEveryMs) * time.Millisecond
	loop.ScheduleNow(period, tick, nil)

	errc := make(chan error, 1)
	go func() { errc <- loop.Run(ctx) }()

	select {
	case <-done:
		stop()
		return nil
	case err := <-errc:
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
}

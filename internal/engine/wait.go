package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blackwell-systems/stack-installer/internal/clock"
)

// ErrTimeout indicates the daemon did not become ready within the bound.
var ErrTimeout = errors.New("timed out waiting for engine")

const (
	DefaultReadyTimeout = 180 * time.Second
	DefaultPollInterval = 2 * time.Second
)

// StatusSource is anything that can report engine status.
type StatusSource interface {
	Probe(ctx context.Context) Status
}

// WaitOptions bound a readiness wait.
type WaitOptions struct {
	Timeout  time.Duration
	Interval time.Duration

	// Check runs once per iteration after a negative probe. A non-nil error ends the wait.
	Check func(ctx context.Context) error

	// OnPoll is called after each negative probe with the time waited so far.
	OnPoll func(status Status, waited time.Duration)
}

// WaitReady polls src until the daemon is running or the timeout elapses.
// A daemon that refuses this user counts as running; access is remedied later.
func WaitReady(ctx context.Context, src StatusSource, clk clock.Clock, opts WaitOptions) error {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultReadyTimeout
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}

	start := clk.Now()
	deadline := start.Add(opts.Timeout)
	for {
		status := src.Probe(ctx)
		if status.Running() {
			return nil
		}
		if opts.Check != nil {
			if err := opts.Check(ctx); err != nil {
				return err
			}
		}
		if opts.OnPoll != nil {
			opts.OnPoll(status, clk.Now().Sub(start))
		}
		if !clk.Now().Before(deadline) {
			return fmt.Errorf("%w after %s: %s", ErrTimeout, opts.Timeout, status.Reason)
		}
		if err := clk.Sleep(ctx, opts.Interval); err != nil {
			return err
		}
	}
}

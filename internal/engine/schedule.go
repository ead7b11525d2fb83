package engine

import (
	"context"
	"fmt"
	"time"

	clierr "github.com/gzale/wrapcycle/internal/errors"
	"github.com/gzale/wrapcycle/internal/logging"
	"github.com/robfig/cron/v3"
)

// NextRun computes the next instant the daily schedule fires: today at
// {hour, minute} when that is still ahead of now, tomorrow otherwise. The
// returned instant is always strictly after now.
func NextRun(hour, minute int, now time.Time) (time.Time, error) {
	spec, err := cron.ParseStandard(fmt.Sprintf("%d %d * * *", minute, hour))
	if err != nil {
		return time.Time{}, clierr.Wrap(clierr.CodeConfig, "invalid schedule time", err)
	}
	return spec.Next(now), nil
}

// Controller is the top-level state machine: Manual runs one pass immediately,
// Auto waits for the daily wall-clock time, runs, and repeats forever. Both
// finish a pass with the best-effort check-in.
type Controller struct {
	RunPass func(ctx context.Context) error
	Notify  func(ctx context.Context)
	Log     logging.Logger

	Now       func() time.Time
	Sleep     SleepFunc
	Countdown func(remaining time.Duration) // optional live display while waiting
}

func NewController(runPass func(ctx context.Context) error, notify func(ctx context.Context), log logging.Logger) *Controller {
	return &Controller{
		RunPass: runPass,
		Notify:  notify,
		Log:     log,
		Now:     time.Now,
		Sleep:   Sleep,
	}
}

// RunManual executes a single pass and the check-in, then returns.
func (c *Controller) RunManual(ctx context.Context) error {
	if err := c.RunPass(ctx); err != nil {
		return err
	}
	c.Notify(ctx)
	return nil
}

// RunAuto loops forever: wait for the daily time, run a pass, check in,
// recompute. Only context cancellation stops it.
func (c *Controller) RunAuto(ctx context.Context, hour, minute int) error {
	for {
		next, err := NextRun(hour, minute, c.Now())
		if err != nil {
			return err
		}
		c.Log.Infof("next run scheduled for %s", next.Format("2006-01-02 15:04:05"))
		if err := c.waitUntil(ctx, next); err != nil {
			return err
		}
		if err := c.RunPass(ctx); err != nil {
			return err
		}
		c.Notify(ctx)
	}
}

func (c *Controller) waitUntil(ctx context.Context, next time.Time) error {
	for {
		remaining := next.Sub(c.Now())
		if remaining <= 0 {
			return nil
		}
		if c.Countdown != nil {
			c.Countdown(remaining)
		}
		step := time.Second
		if remaining < step {
			step = remaining
		}
		if err := c.Sleep(ctx, step); err != nil {
			return err
		}
	}
}

package engine

import (
	"context"
	"time"

	clierr "github.com/gzale/wrapcycle/internal/errors"
	"github.com/gzale/wrapcycle/internal/logging"
)

// SleepFunc is a cooperative, cancellable pause. Injected so tests never wait
// on real timers.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retrier runs a fallible operation until it succeeds. There is no attempt
// limit and no failure classification: every error is assumed transient and
// retried after a fixed backoff. The only exit paths are success and context
// cancellation.
type Retrier struct {
	Backoff time.Duration
	Sleep   SleepFunc
	Log     logging.Logger
}

func NewRetrier(log logging.Logger) *Retrier {
	return &Retrier{
		Backoff: time.Second,
		Sleep:   Sleep,
		Log:     log,
	}
}

// Do attempts op until it returns nil. Each failure is logged with the most
// specific message available and retried after the backoff.
func (r *Retrier) Do(ctx context.Context, label string, op func(ctx context.Context) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.Log.Warnf("%s: %s, retrying", label, clierr.Describe(err))
		if err := r.Sleep(ctx, r.Backoff); err != nil {
			return err
		}
	}
}

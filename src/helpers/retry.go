package helpers

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
)

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryPolicy bounds one fetch run.
type RetryPolicy struct {
	Attempts       int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
}

// RetryWithBackoff runs fn up to policy.Attempts times. Each attempt gets its
// own timeout derived from ctx; the delay doubles between attempts. Parse
// errors are fatal and end the run immediately. notify is called after every
// failed attempt with the attempt number (1-based) and the classified error.
// The returned error is the last attempt's error, or ctx's error when stopped.
func RetryWithBackoff(
	ctx context.Context,
	sourceID string,
	policy RetryPolicy,
	clk clock.Clock,
	notify func(attempt int, err error),
	fn func(ctx context.Context) error,
) error {
	if clk == nil {
		clk = clock.WallClock
	}
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := policy.BaseDelay
	if delay <= 0 {
		delay = time.Millisecond
	}

	err := retry.Call(retry.CallArgs{
		Func: func() error {
			attemptCtx := ctx
			if policy.AttemptTimeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, policy.AttemptTimeout)
				defer cancel()
			}
			return ClassifyFetchError(sourceID, fn(attemptCtx))
		},
		IsFatalError: IsParseError,
		NotifyFunc: func(lastErr error, attempt int) {
			if notify != nil {
				notify(attempt, lastErr)
			}
		},
		Attempts:    attempts,
		Delay:       delay,
		MaxDelay:    policy.MaxDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       clk,
		Stop:        ctx.Done(),
	})
	if err == nil {
		return nil
	}
	if retry.IsRetryStopped(err) && ctx.Err() != nil {
		return ctx.Err()
	}
	if retry.IsAttemptsExceeded(err) {
		return retry.LastError(err)
	}
	return err
}

package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds the retries of a single provider call. It applies only
// when the call itself errors, never to a job that is still running.
type RetryPolicy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxInterval
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

// retryCall runs op until it succeeds, returns a permanent error, or the
// attempt budget is spent. An exhausted budget is escalated to a permanent
// error so the run goes straight to compensation.
func retryCall[T any](ctx context.Context, p RetryPolicy, stage string, op func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	var lastErr error
	operation := func() (T, error) {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if faults.IsPermanent(err) || ctx.Err() != nil {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	notify := func(err error, next time.Duration) {
		slog.Warn("Call failed, will retry.", "stage", stage, "backoff", next.String(), "error", err)
	}

	v, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(attempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err == nil {
		return v, nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	if faults.IsPermanent(err) {
		return v, err
	}
	if ctx.Err() != nil {
		return v, err
	}
	if lastErr == nil {
		lastErr = err
	}
	return v, faults.Permanent(stage, "retry", "retry budget exhausted", lastErr)
}

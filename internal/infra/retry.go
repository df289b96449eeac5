package infra

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy is an exponential backoff schedule: the n-th retry waits
// BaseDelay * 2^n (capped at MaxDelay), at most MaxRetries times.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// OnRetry is called before sleeping. attempt counts from 1.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryPolicy returns the policy used for venue calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  baseDelay,
		MaxDelay:   maxDelay,
	}
}

// Retry runs fn until it succeeds, returns an error that retryable rejects,
// or the policy is exhausted. The last error from fn is returned unchanged.
// A cancelled ctx stops the wait between attempts and returns ctx.Err().
func Retry[T any](ctx context.Context, p RetryPolicy, retryable func(error) bool, fn func(context.Context) (T, error)) (T, error) {
	var (
		result  T
		lastErr error
		attempt int
	)

	schedule := Exponential(p.BaseDelay, p.MaxDelay, p.MaxRetries)
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := schedule.Next()
		if !stop && p.OnRetry != nil {
			p.OnRetry(attempt, lastErr, d)
		}
		return d, stop
	})

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		v, err := fn(ctx)
		if err == nil {
			result = v
			return nil
		}
		lastErr = err
		if retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

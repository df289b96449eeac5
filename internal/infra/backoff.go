package infra

import (
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// Standard backoff constants
	baseDelay = 1 * time.Second
	maxDelay  = 60 * time.Second
)

// ExponentialDelay returns base * 2^retryCount, capped at max.
// A negative retryCount returns base. A non-positive max disables the cap.
func ExponentialDelay(base, max time.Duration, retryCount int) time.Duration {
	if retryCount < 0 {
		return base
	}

	// 2^30 seconds is already far beyond any sane cap.
	if retryCount > 30 {
		if max > 0 {
			return max
		}
		retryCount = 30
	}

	backoff := base * time.Duration(1<<retryCount)

	if max > 0 && backoff > max {
		return max
	}

	return backoff
}

// Exponential returns a go-retry schedule yielding base * 2^attempt for at
// most maxRetries retries. Each call returns a fresh schedule.
func Exponential(base, max time.Duration, maxRetries int) retry.Backoff {
	attempt := 0
	b := retry.BackoffFunc(func() (time.Duration, bool) {
		d := ExponentialDelay(base, max, attempt)
		attempt++
		return d, false
	})
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retry.WithMaxRetries(uint64(maxRetries), b)
}

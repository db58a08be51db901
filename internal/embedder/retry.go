package embedder

import (
	"context"
	"time"
)

// RetryPolicy is an explicit retry value object: attempt budget, backoff
// schedule, and the predicate deciding which errors are worth retrying.
// Keeping it a value makes retry behavior testable apart from the loops
// that use it.
type RetryPolicy struct {
	MaxAttempts int                   // Total attempts including the first
	BaseDelay   time.Duration         // Delay before the first retry
	MaxDelay    time.Duration         // Backoff ceiling
	Multiplier  float64               // Exponential growth factor
	Retryable   func(error) bool      // Nil means retry everything
	Sleep       func(time.Duration)   // Test hook; nil means time.Sleep via timer
}

// DefaultRetryPolicy retries transient failures with exponential backoff.
// Providers use this internally; rate-limit retries during generation carry
// their own policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		Retryable:   IsTransient,
	}
}

// RateLimitPolicy retries only throttling responses, with longer delays.
func RateLimitPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  3.0,
		Retryable:   IsRateLimited,
	}
}

// Do executes fn under the policy. The last error is returned when the
// attempt budget is exhausted or the error is not retryable. Context
// cancellation aborts immediately.
func Do[T any](ctx context.Context, policy RetryPolicy, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := policy.BaseDelay

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if policy.Retryable != nil && !policy.Retryable(err) {
			return zero, err
		}

		if attempt < attempts-1 {
			if err := policy.wait(ctx, backoff); err != nil {
				return zero, err
			}
			backoff = time.Duration(float64(backoff) * policy.Multiplier)
			if policy.MaxDelay > 0 && backoff > policy.MaxDelay {
				backoff = policy.MaxDelay
			}
		}
	}

	return zero, lastErr
}

func (p RetryPolicy) wait(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		p.Sleep(d)
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

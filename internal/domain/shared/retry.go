package shared

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryPolicy bounds an optimistic retry loop
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration
}

// DefaultRetryPolicy returns the policy used for sequential number assignment
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   10 * time.Millisecond,
		MaxJitter:   40 * time.Millisecond,
	}
}

// RetryExhaustedError is returned when all attempts of a retried operation failed
type RetryExhaustedError struct {
	Attempts int
	LastErr  error
}

// Error implements the error interface
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.LastErr)
}

// Unwrap returns the error of the last attempt
func (e *RetryExhaustedError) Unwrap() error {
	return e.LastErr
}

// Retry runs op up to MaxAttempts times, sleeping a jittered delay between
// attempts. The retryable predicate decides which errors warrant another
// attempt; any other error is returned as-is. When attempts are exhausted a
// *RetryExhaustedError wrapping the last error is returned.
func Retry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) error, retryable func(error) bool) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}

		delay := policy.BaseDelay
		if policy.MaxJitter > 0 {
			delay += time.Duration(rand.Int63n(int64(policy.MaxJitter)))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return &RetryExhaustedError{Attempts: policy.MaxAttempts, LastErr: lastErr}
}

package httputil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 5xx responses) with this type
// so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a RetryableError. It returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is wrapped with RetryableError.
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Backoff selects how the delay grows between attempts.
type Backoff string

const (
	BackoffExponential Backoff = "exponential" // delay doubles after each attempt
	BackoffFlat        Backoff = "flat"        // same delay before every attempt
)

// ParseBackoff converts "exponential" or "flat" into a Backoff.
func ParseBackoff(s string) (Backoff, error) {
	switch b := Backoff(strings.ToLower(s)); b {
	case BackoffExponential, BackoffFlat:
		return b, nil
	}
	return "", fmt.Errorf("unknown backoff %q", s)
}

// RetryPolicy configures [RetryPolicy.Do].
type RetryPolicy struct {
	Attempts int           // total attempts, at least 1
	Delay    time.Duration // delay before the second attempt
	Backoff  Backoff       // defaults to exponential
	// OnRetry, if set, is called before each wait with the failed attempt
	// number (1-based) and its error.
	OnRetry func(attempt int, err error)
}

// Do executes fn until it succeeds, returns a non-retryable error, or the
// attempts are exhausted. Returns the last error, or ctx.Err() if cancelled
// while waiting.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			if p.OnRetry != nil {
				p.OnRetry(i+1, lastErr)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				if p.Backoff != BackoffFlat {
					delay *= 2
				}
			}
		}
	}
	return lastErr
}

// Retry executes fn up to attempts times with exponential backoff.
// It only retries errors wrapped with [RetryableError]; other errors are
// returned immediately.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	return RetryPolicy{Attempts: attempts, Delay: delay, Backoff: BackoffExponential}.Do(ctx, fn)
}

// RetryWithBackoff is a convenience wrapper around [Retry] with sensible
// defaults: 3 attempts with 1 second initial delay (doubling each retry).
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, time.Second, fn)
}

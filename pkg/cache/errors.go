package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("cache closed")

	// ErrBackend is returned for failures of a remote backend (connection
	// errors, timeouts, server errors).
	ErrBackend = errors.New("cache backend error")
)

// RetryableError marks a transient backend failure.
type RetryableError struct{ Err error }

// Retryable wraps err as a RetryableError. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is, or wraps, a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Backoff controls RetryWithBackoff.
type Backoff struct {
	Attempts int
	Delay    time.Duration
}

// DefaultBackoff makes three attempts starting at 100ms.
var DefaultBackoff = Backoff{Attempts: 3, Delay: 100 * time.Millisecond}

// RetryWithBackoff calls fn until it succeeds, returns a non-retryable
// error, or b.Attempts calls have been made, doubling the delay between
// calls.
func RetryWithBackoff(ctx context.Context, b Backoff, fn func() error) error {
	if b.Attempts < 1 {
		b.Attempts = 1
	}
	delay := b.Delay
	var lastErr error
	for i := 0; i < b.Attempts; i++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		} else if !IsRetryable(lastErr) {
			return lastErr
		}
		if i < b.Attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

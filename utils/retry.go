package utils

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRetriesExhausted wraps the last error once every attempt has been used.
var ErrRetriesExhausted = errors.New("retries exhausted")

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *Logger

	// Retryable reports whether err should trigger another attempt.
	// A nil Retryable retries every error.
	Retryable func(err error) bool
	// Sleep defaults to Sleep.
	Sleep SleepFunc
}

// Do executes fn with exponential back-off retry logic. The delay before
// attempt n+1 is BaseDelay * 2^(n-1). Non-retryable errors are returned
// unchanged; when the attempts run out the last error is wrapped with
// ErrRetriesExhausted.
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func(attempt int) error) error {
	sleep := r.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	maxAttempts := r.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if r.Retryable != nil && !r.Retryable(lastErr) {
			return lastErr
		}

		if attempt < maxAttempts {
			if r.Logger != nil {
				r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
					operationName, attempt, maxAttempts, lastErr, delay)
			}
			if err := sleep(ctx, delay); err != nil {
				return fmt.Errorf("%s: %w", operationName, err)
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%w: %s failed after %d attempts: %w", ErrRetriesExhausted, operationName, maxAttempts, lastErr)
}

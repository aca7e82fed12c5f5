// Package utils holds the retry helper used for meal log and job store writes.
package utils

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	apperrors "github.com/mealsnap/mealsnap/internal/errors"
)

// RetryConfig holds the configuration for the retry mechanism.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	Timeout         time.Duration
	RetryableErrors []string
}

// RetryableFunc defines the signature for operations that can be retried.
type RetryableFunc[T any] func(ctx context.Context) (T, error)

// StoreRetryConfig returns a RetryConfig for meal log and job store writes,
// which should either land within a few seconds or fail the job.
func StoreRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   4,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		Timeout:       5 * time.Second,
		RetryableErrors: []string{
			"timeout",
			"deadline exceeded",
			"connection reset",
			"connection refused",
			"broken pipe",
			"database is locked", // SQLite writer contention
			"too many clients",
		},
	}
}

// IsRetryableError checks if the given error is retryable based on defined
// patterns. Application errors decide for themselves.
func IsRetryableError(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	if appErr, ok := apperrors.As(err); ok {
		if apperrors.IsTerminal(err) {
			return false
		}
		if appErr.IsRetryable() {
			return true
		}
	}
	errMsg := strings.ToLower(err.Error())
	for _, pattern := range patterns {
		if strings.Contains(errMsg, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// backoffDelay is InitialDelay * BackoffFactor^(attempt-1), capped at MaxDelay,
// before jitter.
func (c RetryConfig) backoffDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.InitialDelay) * math.Pow(c.BackoffFactor, float64(attempt-1)))
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// WithRetry runs operation until it succeeds, returns a non-retryable error
// or MaxAttempts is reached. Each attempt gets its own Timeout.
func WithRetry[T any](ctx context.Context, operation RetryableFunc[T], config RetryConfig) (T, error) {
	var lastErr error
	var zero T

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, config.Timeout)
		result, err := operation(attemptCtx)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == config.MaxAttempts || !IsRetryableError(err, config.RetryableErrors) {
			break
		}

		delay := config.backoffDelay(attempt)
		// up to 10% jitter
		if jitterRange := int64(delay) / 10; jitterRange > 0 {
			delay += time.Duration(rand.Int63n(jitterRange))
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}

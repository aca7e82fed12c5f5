package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig keeps the store patterns but shrinks every delay.
func fastConfig() RetryConfig {
	config := StoreRetryConfig()
	config.InitialDelay = time.Millisecond
	config.MaxDelay = 5 * time.Millisecond
	config.Timeout = time.Second
	return config
}

func TestIsRetryableError(t *testing.T) {
	patterns := StoreRetryConfig().RetryableErrors

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"sqlite contention", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"postgres saturation", errors.New("FATAL: sorry, too many clients already"), true},
		{"redis dial", errors.New("dial tcp 127.0.0.1:6379: connect: Connection Refused"), true},
		{"constraint violation", errors.New("UNIQUE constraint failed: meal_entries.id"), false},
		{"nil", nil, false},
		{"retryable transport", apperrors.NewTransportError("gateway timeout", "PROVIDER_TRANSPORT", 504, nil), true},
		{"terminal cancellation", apperrors.NewCancelledError(context.Canceled), false},
		{"terminal validation", apperrors.NewValidationError("bad input", "INVALID_REQUEST", ""), false},
		{"wrapped terminal", errors.Join(errors.New("save job"), apperrors.NewAllProvidersFailedError("text", 2, nil)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryableError(tt.err, patterns))
		})
	}
}

func TestWithRetry_FirstAttemptSucceeds(t *testing.T) {
	attempts := 0
	id, err := WithRetry(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		return "meal-1", nil
	}, fastConfig())

	require.NoError(t, err)
	assert.Equal(t, "meal-1", id)
	assert.Equal(t, 1, attempts)
}

func TestWithRetry_RecoversFromLockedDatabase(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), func(ctx context.Context) (struct{}, error) {
		attempts++
		if attempts < 3 {
			return struct{}{}, errors.New("database is locked")
		}
		return struct{}{}, nil
	}, fastConfig())

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_MaxAttemptsExhausted(t *testing.T) {
	config := fastConfig()
	attempts := 0
	storeErr := errors.New("connection refused")

	_, err := WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, storeErr
	}, config)

	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, config.MaxAttempts, attempts)
}

func TestWithRetry_NonRetryableError(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("UNIQUE constraint failed")
	}, fastConfig())

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := fastConfig()
	config.InitialDelay = 200 * time.Millisecond
	config.MaxDelay = time.Second

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := WithRetry(ctx, func(ctx context.Context) (int, error) {
		return 0, errors.New("i/o timeout")
	}, config)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithRetry_TimeoutPerAttempt(t *testing.T) {
	config := fastConfig()
	config.Timeout = 10 * time.Millisecond
	config.MaxAttempts = 2

	_, err := WithRetry(context.Background(), func(ctx context.Context) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(200 * time.Millisecond):
			return "done", nil
		}
	}, config)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoffDelay(t *testing.T) {
	config := StoreRetryConfig()

	assert.Equal(t, 200*time.Millisecond, config.backoffDelay(1))
	assert.Equal(t, 400*time.Millisecond, config.backoffDelay(2))
	assert.Equal(t, 800*time.Millisecond, config.backoffDelay(3))
	assert.Equal(t, 2*time.Second, config.backoffDelay(10), "capped at MaxDelay")
}

func TestStoreRetryConfig(t *testing.T) {
	config := StoreRetryConfig()

	assert.Greater(t, config.MaxAttempts, 1)
	assert.LessOrEqual(t, config.Timeout, 5*time.Second)
	assert.Contains(t, config.RetryableErrors, "database is locked")
}

package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/driveindex/internal/core/domain"
)

var fastRetry = domain.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestRetryWithBackoff_RetriesTransient(t *testing.T) {
	calls := 0
	got, err := retryWithBackoff(context.Background(), fastRetry, "op", func() (int, error) {
		calls++
		if calls < 3 {
			return 0, fmt.Errorf("%w: 429", domain.ErrTransient)
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_GivesUp(t *testing.T) {
	calls := 0
	_, err := retryWithBackoff(context.Background(), fastRetry, "op", func() (int, error) {
		calls++
		return 0, fmt.Errorf("%w: 503", domain.ErrTransient)
	})

	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	permanent := errors.New("forbidden")
	_, err := retryWithBackoff(context.Background(), fastRetry, "op", func() (string, error) {
		calls++
		return "", permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := domain.RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}

	calls := 0
	_, err := retryWithBackoff(ctx, policy, "op", func() (int, error) {
		calls++
		cancel()
		return 0, domain.ErrTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, _ = retryWithBackoff(context.Background(), domain.RetryPolicy{}, "op", func() (int, error) {
		calls++
		return 0, domain.ErrTransient
	})
	assert.Equal(t, 1, calls)
}

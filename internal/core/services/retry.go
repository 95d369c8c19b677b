package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/logger"
)

const backoffMultiplier = 2.0

// retryWithBackoff runs fn until it succeeds, returns a non-transient error,
// or the policy's attempts are used up. Only errors wrapping
// domain.ErrTransient are retried. Retry is skipped on context cancellation.
func retryWithBackoff[T any](
	ctx context.Context, policy domain.RetryPolicy, op string, fn func() (T, error),
) (T, error) {
	var zero T
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := policy.BaseDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !errors.Is(err, domain.ErrTransient) || attempt == attempts {
			break
		}

		logger.Debug("%s: attempt %d/%d failed, retrying in %s: %v", op, attempt, attempts, backoff, err)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * backoffMultiplier)
		if policy.MaxDelay > 0 && backoff > policy.MaxDelay {
			backoff = policy.MaxDelay
		}
	}

	return zero, lastErr
}

// Package retry wraps github.com/cenkalti/backoff/v4 with the error
// classification the engine needs, generalized from the teacher's
// internal/sync/error_handling.go (RetryConfig, ShouldRetry, GetDelay,
// ErrorRecovery.HandleError). The teacher computed its own exponential
// delay with a hand-rolled integer pow(); that arithmetic is replaced here
// with backoff.ExponentialBackOff, grounded on
// other_examples/manifests/cre4ture-syncthing and
// other_examples/manifests/kopia-kopia, both of which depend on
// cenkalti/backoff for the same purpose.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

// Classify reports whether err's class is retryable under policy, per the
// teacher's isRetryable/isNetworkError/isTemporaryError checks generalized
// to types.ErrorClass membership in policy.RetryableErrors.
func Classify(err error, policy types.RetryPolicy) bool {
	var syncErr *types.SyncError
	if !errors.As(err, &syncErr) {
		return false
	}
	for _, class := range policy.RetryableErrors {
		if syncErr.Class == class {
			return true
		}
	}
	return false
}

// newBackOff builds a backoff.BackOff from policy, capped at MaxAttempts
// tries via backoff.WithMaxRetries.
func newBackOff(policy types.RetryPolicy) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = policy.InitialDelay
	eb.MaxInterval = policy.MaxDelay
	eb.Multiplier = policy.Multiplier
	eb.MaxElapsedTime = 0 // bounded by attempt count, not wall-clock

	maxRetries := policy.MaxAttempts - 1
	if maxRetries < 0 {
		maxRetries = 0
	}
	return backoff.WithMaxRetries(eb, uint64(maxRetries))
}

// Do runs op, retrying per policy whenever op returns a retryable
// *types.SyncError, until it succeeds, policy's attempt budget is
// exhausted, or ctx is cancelled. onRetry, if non-nil, is called before
// each retry with the attempt number (starting at 1) and the delay about
// to be waited.
func Do(ctx context.Context, policy types.RetryPolicy, onRetry func(attempt int, delay time.Duration, err error), op func() error) error {
	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !Classify(err, policy) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.WithContext(newBackOff(policy), ctx)

	notify := func(err error, delay time.Duration) {
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}

	return backoff.RetryNotify(wrapped, bo, notify)
}

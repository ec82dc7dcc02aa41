package docharvest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/docharvest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() docharvest.RetryPolicy {
	return docharvest.RetryPolicy{
		MaxRetries:      3,
		InitialDelay:    10 * time.Millisecond,
		DelayFactor:     2,
		RateLimitFactor: 3,
	}
}

func TestRetry(t *testing.T) {
	t.Parallel()

	t.Run("succeeds after two transient failures", func(t *testing.T) {
		t.Parallel()

		policy := fastPolicy()
		var calls int
		var retries []int
		policy.OnRetry = func(attempt int, _ time.Duration, _ error) {
			retries = append(retries, attempt)
		}

		start := time.Now()
		v, err := docharvest.Retry(context.Background(), policy, func(ctx context.Context) (string, error) {
			calls++
			if calls <= 2 {
				return "", docharvest.Errorf(docharvest.ENETWORK, "connection reset")
			}
			return "ok", nil
		})
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.Equal(t, "ok", v)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []int{1, 2}, retries)
		// initial + initial*factor
		assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	})

	t.Run("does not retry validation errors", func(t *testing.T) {
		t.Parallel()

		var calls int
		_, err := docharvest.Retry(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
			calls++
			return 0, docharvest.Errorf(docharvest.EINVALID, "bad input")
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, docharvest.EINVALID, docharvest.ErrorCode(err))
	})

	t.Run("returns last error when retries are exhausted", func(t *testing.T) {
		t.Parallel()

		policy := fastPolicy()
		policy.MaxRetries = 2
		policy.InitialDelay = time.Millisecond
		var calls int
		_, err := docharvest.Retry(context.Background(), policy, func(ctx context.Context) (int, error) {
			calls++
			return 0, docharvest.Errorf(docharvest.ETIMEOUT, "attempt %d", calls)
		})

		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, "attempt 3", docharvest.ErrorMessage(err))
	})

	t.Run("stops waiting when context is canceled", func(t *testing.T) {
		t.Parallel()

		policy := fastPolicy()
		policy.InitialDelay = time.Hour
		ctx, cancel := context.WithCancel(context.Background())
		_, err := docharvest.Retry(ctx, policy, func(ctx context.Context) (int, error) {
			cancel()
			return 0, docharvest.Errorf(docharvest.ENETWORK, "down")
		})

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("foreign errors are not retried", func(t *testing.T) {
		t.Parallel()

		var calls int
		_, err := docharvest.Retry(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("permanent")
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestRetryPolicy_Delay(t *testing.T) {
	t.Parallel()

	p := docharvest.RetryPolicy{
		InitialDelay:    time.Second,
		DelayFactor:     2,
		RateLimitFactor: 3,
		MaxDelay:        10 * time.Second,
	}
	network := docharvest.Errorf(docharvest.ENETWORK, "x")
	limited := docharvest.Errorf(docharvest.ERATELIMIT, "x")

	assert.Equal(t, time.Second, p.Delay(0, network))
	assert.Equal(t, 2*time.Second, p.Delay(1, network))
	assert.Equal(t, 4*time.Second, p.Delay(2, network))
	assert.Equal(t, 3*time.Second, p.Delay(0, limited))
	assert.Equal(t, 10*time.Second, p.Delay(2, limited), "capped at MaxDelay")
}

package docharvest

import (
	"context"
	"time"
)

// RetryPolicy configures exponential backoff for remote calls.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration

	// DelayFactor multiplies the delay after each retry.
	DelayFactor float64

	// RateLimitFactor further multiplies the delay when the failure
	// was an ERATELIMIT error.
	RateLimitFactor float64

	// MaxDelay caps any single delay. Zero means no cap.
	MaxDelay time.Duration

	// OnRetry, if set, is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryPolicy returns the policy used for crawl, repository and
// embedding calls: 3 retries starting at 1s and doubling, with rate-limit
// failures waiting three times longer.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialDelay:    time.Second,
		DelayFactor:     2,
		RateLimitFactor: 3,
		MaxDelay:        30 * time.Second,
	}
}

// Delay returns the wait before retry number attempt (0-based) after err.
func (p RetryPolicy) Delay(attempt int, err error) time.Duration {
	d := float64(p.InitialDelay)
	factor := p.DelayFactor
	if factor < 1 {
		factor = 1
	}
	for range attempt {
		d *= factor
	}
	if ErrorCode(err) == ERATELIMIT && p.RateLimitFactor > 1 {
		d *= p.RateLimitFactor
	}
	delay := time.Duration(d)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// IsRetryable reports whether err is a transient failure worth retrying.
func IsRetryable(err error) bool {
	switch ErrorCode(ClassifyError(err)) {
	case ENETWORK, ETIMEOUT, ERATELIMIT:
		return true
	}
	return false
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// policy's retries are exhausted. The last error is returned on failure.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = ClassifyError(err)

		if !IsRetryable(lastErr) || attempt == p.MaxRetries {
			break
		}

		delay := p.Delay(attempt, lastErr)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, lastErr)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}

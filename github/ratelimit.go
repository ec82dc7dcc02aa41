package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rate limiting defaults. The proactive rate keeps an authenticated client
// under the hourly quota of 5000 requests.
const (
	DefaultQuota         = 5000
	DefaultProactiveRate = 1.2
	DefaultMinRemaining  = 100

	headerLimit      = "X-RateLimit-Limit"
	headerRemaining  = "X-RateLimit-Remaining"
	headerReset      = "X-RateLimit-Reset"
	headerRetryAfter = "Retry-After"
)

// RateLimiter combines a token bucket with the quota reported in response
// headers. Once fewer than MinRemaining requests are left, Wait blocks until
// the quota resets. The floor shrinks to a tenth of smaller quotas, so the
// 60 requests an hour of an anonymous client stay usable.
type RateLimiter struct {
	bucket       *rate.Limiter
	minRemaining int

	mu        sync.Mutex
	limit     int
	remaining int
	reset     time.Time
}

// NewRateLimiter returns a limiter allowing rps requests per second.
// rps <= 0 disables the token bucket.
func NewRateLimiter(rps float64) *RateLimiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RateLimiter{
		bucket:       rate.NewLimiter(limit, 1),
		minRemaining: DefaultMinRemaining,
		limit:        DefaultQuota,
		remaining:    DefaultQuota,
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	limit, remaining, reset := r.limit, r.remaining, r.reset
	r.mu.Unlock()

	if remaining >= r.floor(limit) || !time.Now().Before(reset) {
		return nil
	}
	timer := time.NewTimer(time.Until(reset))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// floor is the remaining count below which Wait holds requests back.
func (r *RateLimiter) floor(limit int) int {
	return max(1, min(r.minRemaining, limit/10))
}

// Update records the quota headers of resp. A Retry-After header on a
// throttled response pushes the reset time out.
func (r *RateLimiter) Update(resp *http.Response) {
	if resp == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, err := strconv.Atoi(resp.Header.Get(headerLimit)); err == nil {
		r.limit = v
	}
	if v, err := strconv.Atoi(resp.Header.Get(headerRemaining)); err == nil {
		r.remaining = v
	}
	if v, err := strconv.ParseInt(resp.Header.Get(headerReset), 10, 64); err == nil {
		r.reset = time.Unix(v, 0)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
		if secs, err := strconv.Atoi(resp.Header.Get(headerRetryAfter)); err == nil {
			r.remaining = 0
			r.reset = time.Now().Add(time.Duration(secs) * time.Second)
		}
	}
}

// Status returns the last quota seen in a response.
func (r *RateLimiter) Status() RateLimitStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RateLimitStatus{Limit: r.limit, Remaining: r.remaining, Reset: r.reset}
}

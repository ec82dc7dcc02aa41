package github_test

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/fwojciec/docharvest/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(status int, headers map[string]string) *http.Response {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &http.Response{StatusCode: status, Header: h}
}

func TestRateLimiter_Update(t *testing.T) {
	t.Parallel()

	l := github.NewRateLimiter(0)
	reset := time.Now().Add(time.Hour).Unix()

	l.Update(response(http.StatusOK, map[string]string{
		"X-RateLimit-Limit":     "5000",
		"X-RateLimit-Remaining": "4321",
		"X-RateLimit-Reset":     strconv.FormatInt(reset, 10),
	}))

	status := l.Status()
	assert.Equal(t, 5000, status.Limit)
	assert.Equal(t, 4321, status.Remaining)
	assert.Equal(t, reset, status.Reset.Unix())
}

func TestRateLimiter_Wait(t *testing.T) {
	t.Parallel()

	t.Run("passes while quota remains", func(t *testing.T) {
		t.Parallel()

		l := github.NewRateLimiter(0)

		require.NoError(t, l.Wait(context.Background()))
	})

	t.Run("blocks until reset when quota is exhausted", func(t *testing.T) {
		t.Parallel()

		l := github.NewRateLimiter(0)
		l.Update(response(http.StatusTooManyRequests, map[string]string{"Retry-After": "60"}))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := l.Wait(ctx)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 0, l.Status().Remaining)
	})

	t.Run("passes once the reset time is in the past", func(t *testing.T) {
		t.Parallel()

		l := github.NewRateLimiter(0)
		l.Update(response(http.StatusOK, map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(-time.Minute).Unix(), 10),
		}))

		require.NoError(t, l.Wait(context.Background()))
	})

	t.Run("keeps an anonymous quota usable", func(t *testing.T) {
		t.Parallel()

		l := github.NewRateLimiter(0)
		l.Update(response(http.StatusOK, map[string]string{
			"X-RateLimit-Limit":     "60",
			"X-RateLimit-Remaining": "59",
			"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10),
		}))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		require.NoError(t, l.Wait(ctx))
	})

	t.Run("holds an anonymous quota near exhaustion", func(t *testing.T) {
		t.Parallel()

		l := github.NewRateLimiter(0)
		l.Update(response(http.StatusOK, map[string]string{
			"X-RateLimit-Limit":     "60",
			"X-RateLimit-Remaining": "5",
			"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10),
		}))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
	})
}

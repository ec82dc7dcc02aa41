package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/docharvest"
	dhhttp "github.com/fwojciec/docharvest/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns HTML body and sends default headers", func(t *testing.T) {
		t.Parallel()

		var ua string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><body>Hello World</body></html>"))
		}))
		defer server.Close()

		html, err := dhhttp.NewFetcher().Fetch(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Equal(t, "<html><body>Hello World</body></html>", html)
		assert.Equal(t, dhhttp.DefaultUserAgent, ua)
	})

	t.Run("sends custom headers", func(t *testing.T) {
		t.Parallel()

		var got string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("X-Token")
			_, _ = w.Write([]byte("<p>ok</p>"))
		}))
		defer server.Close()

		f := dhhttp.NewFetcher(dhhttp.WithHeaders(map[string]string{"X-Token": "abc"}))
		_, err := f.Fetch(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Equal(t, "abc", got)
	})

	t.Run("times out with ETIMEOUT", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("late"))
		}))
		defer server.Close()

		f := dhhttp.NewFetcher(dhhttp.WithTimeout(20 * time.Millisecond))
		_, err := f.Fetch(context.Background(), server.URL)

		assert.Equal(t, docharvest.ETIMEOUT, docharvest.ErrorCode(err))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("response"))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := dhhttp.NewFetcher().Fetch(ctx, server.URL)

		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("maps status codes to error codes", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			status int
			want   string
		}{
			{http.StatusNotFound, docharvest.ENOTFOUND},
			{http.StatusTooManyRequests, docharvest.ERATELIMIT},
			{http.StatusForbidden, docharvest.EPERMISSION},
			{http.StatusBadGateway, docharvest.ENETWORK},
			{http.StatusTeapot, docharvest.EEXTERNAL},
		}
		for _, tt := range tests {
			t.Run(http.StatusText(tt.status), func(t *testing.T) {
				t.Parallel()

				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
				}))
				defer server.Close()

				_, err := dhhttp.NewFetcher().Fetch(context.Background(), server.URL)

				assert.Equal(t, tt.want, docharvest.ErrorCode(err))
			})
		}
	})

	t.Run("stops after too many redirects", func(t *testing.T) {
		t.Parallel()

		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
		}))
		defer server.Close()

		f := dhhttp.NewFetcher(dhhttp.WithMaxRedirects(2))
		_, err := f.Fetch(context.Background(), server.URL+"/")

		assert.Equal(t, docharvest.ENETWORK, docharvest.ErrorCode(err))
	})

	t.Run("rejects bodies over the size cap", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(strings.Repeat("a", 2048)))
		}))
		defer server.Close()

		f := dhhttp.NewFetcher(dhhttp.WithMaxBodySize(1024))
		_, err := f.Fetch(context.Background(), server.URL)

		assert.Equal(t, docharvest.EINVALID, docharvest.ErrorCode(err))
	})

	t.Run("rejects non-HTML content", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF"))
		}))
		defer server.Close()

		_, err := dhhttp.NewFetcher().Fetch(context.Background(), server.URL)

		assert.Equal(t, docharvest.EINVALID, docharvest.ErrorCode(err))
	})
}

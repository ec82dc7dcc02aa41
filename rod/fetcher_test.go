//go:build integration

package rod_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fwojciec/docharvest"
	"github.com/fwojciec/docharvest/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spaDocs serves a page whose article is only filled in by script, the way
// client-rendered documentation sites ship an empty shell.
func spaDocs(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<!DOCTYPE html>
<html><head><title>Guide</title></head>
<body>
<main><article id="doc">Loading documentation...</article></main>
<script>
document.getElementById('doc').innerHTML = '<h1>Routing</h1><p>Routes map %s to components.</p>';
</script>
</body></html>`, r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns the script-rendered article", func(t *testing.T) {
		t.Parallel()

		srv := spaDocs(t)
		fetcher, err := rod.NewFetcher()
		require.NoError(t, err)
		defer fetcher.Close()

		html, err := fetcher.Fetch(context.Background(), srv.URL+"/guide/routing")

		require.NoError(t, err)
		assert.Contains(t, html, "<h1>Routing</h1>")
		assert.Contains(t, html, "Routes map /guide/routing to components.")
		assert.NotContains(t, html, "Loading documentation...")
	})

	t.Run("keeps rendering across browser recycles", func(t *testing.T) {
		t.Parallel()

		srv := spaDocs(t)
		fetcher, err := rod.NewFetcher(rod.WithRecycleAfter(1))
		require.NoError(t, err)
		defer fetcher.Close()

		firstPID := fetcher.LauncherPID()
		for _, path := range []string{"/a", "/b", "/c"} {
			html, err := fetcher.Fetch(context.Background(), srv.URL+path)
			require.NoError(t, err)
			assert.Contains(t, html, "Routes map "+path)
		}
		assert.NotEqual(t, firstPID, fetcher.LauncherPID())
	})

	t.Run("slow page times out with ETIMEOUT", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
			_, _ = w.Write([]byte(`<html><body>late</body></html>`))
		}))
		defer srv.Close()

		fetcher, err := rod.NewFetcher(rod.WithFetchTimeout(100 * time.Millisecond))
		require.NoError(t, err)
		defer fetcher.Close()

		_, err = fetcher.Fetch(context.Background(), srv.URL)

		assert.Equal(t, docharvest.ETIMEOUT, docharvest.ErrorCode(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("canceled context is returned unwrapped", func(t *testing.T) {
		t.Parallel()

		fetcher, err := rod.NewFetcher()
		require.NoError(t, err)
		defer fetcher.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = fetcher.Fetch(ctx, "http://127.0.0.1:1")

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFetcher_Close(t *testing.T) {
	t.Parallel()

	fetcher, err := rod.NewFetcher()
	require.NoError(t, err)

	require.NoError(t, fetcher.Close())
	require.NoError(t, fetcher.Close())

	_, err = fetcher.Fetch(context.Background(), "http://example.com")
	assert.Equal(t, docharvest.EINVALID, docharvest.ErrorCode(err))
	assert.Zero(t, fetcher.LauncherPID())
}

package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/docharvest"
	dhhttp "github.com/fwojciec/docharvest/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCrawlClient_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := dhhttp.NewCrawlClient("", "", nil)

	assert.Equal(t, docharvest.ECONFIG, docharvest.ErrorCode(err))
}

func TestCrawlClient_StartCrawl(t *testing.T) {
	t.Parallel()

	t.Run("posts the job with a bearer token", func(t *testing.T) {
		t.Parallel()

		var auth string
		var body map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/crawl", r.URL.Path)
			auth = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&body)
			_, _ = w.Write([]byte(`{"success":true,"id":"job-1","url":"x"}`))
		}))
		defer srv.Close()
		c, err := dhhttp.NewCrawlClient(srv.URL, "secret", srv.Client())
		require.NoError(t, err)

		id, err := c.StartCrawl(context.Background(), docharvest.CrawlRequest{
			URL:          "https://docs.example.com",
			IncludePaths: []string{"/docs/.*"},
			MaxDepth:     2,
			Limit:        50,
		})

		require.NoError(t, err)
		assert.Equal(t, "job-1", id)
		assert.Equal(t, "Bearer secret", auth)
		assert.Equal(t, "https://docs.example.com", body["url"])
		assert.EqualValues(t, 50, body["limit"])
		assert.Equal(t, []any{"/docs/.*"}, body["includePaths"])
	})

	t.Run("maps unauthorized to EPERMISSION", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()
		c, err := dhhttp.NewCrawlClient(srv.URL, "bad", srv.Client())
		require.NoError(t, err)

		_, err = c.StartCrawl(context.Background(), docharvest.CrawlRequest{URL: "https://x"})

		assert.Equal(t, docharvest.EPERMISSION, docharvest.ErrorCode(err))
	})

	t.Run("fails when the service declines", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success":false,"error":"quota"}`))
		}))
		defer srv.Close()
		c, err := dhhttp.NewCrawlClient(srv.URL, "k", srv.Client())
		require.NoError(t, err)

		_, err = c.StartCrawl(context.Background(), docharvest.CrawlRequest{URL: "https://x"})

		assert.Equal(t, docharvest.EEXTERNAL, docharvest.ErrorCode(err))
	})
}

func TestCrawlClient_PollCrawl(t *testing.T) {
	t.Parallel()

	t.Run("streams pages and follows the next cursor", func(t *testing.T) {
		t.Parallel()

		var srv *httptest.Server
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/v1/crawl/job-1":
				_, _ = w.Write([]byte(`{"status":"scraping","total":3,"completed":2,"creditsUsed":2,` +
					`"next":"` + srv.URL + `/v1/crawl/job-1/page2",` +
					`"data":[{"markdown":"# A","metadata":{"title":"A","sourceURL":"https://d/a"}},` +
					`{"markdown":"# B","metadata":{"title":"B","url":"https://d/b"}}]}`))
			case "/v1/crawl/job-1/page2":
				_, _ = w.Write([]byte(`{"status":"completed","total":3,"completed":3,"next":null,` +
					`"data":[{"markdown":"# C","metadata":{"title":"C","sourceURL":"https://d/c"}}]}`))
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()
		c, err := dhhttp.NewCrawlClient(srv.URL, "k", srv.Client())
		require.NoError(t, err)

		var pages []*docharvest.CrawlPage
		collect := func(p *docharvest.CrawlPage) error {
			pages = append(pages, p)
			return nil
		}

		st, err := c.PollCrawl(context.Background(), "job-1", "", collect)
		require.NoError(t, err)
		assert.Equal(t, docharvest.CrawlScraping, st.Status)
		assert.Equal(t, 3, st.Total)
		require.NotEmpty(t, st.Next)

		st, err = c.PollCrawl(context.Background(), "job-1", st.Next, collect)
		require.NoError(t, err)
		assert.Equal(t, docharvest.CrawlCompleted, st.Status)
		assert.Empty(t, st.Next)

		require.Len(t, pages, 3)
		assert.Equal(t, "https://d/a", pages[0].URL)
		assert.Equal(t, "https://d/b", pages[1].URL)
		assert.Equal(t, "# C", pages[2].Markdown)
	})

	t.Run("stops decoding when the callback fails", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"completed","data":[{"markdown":"1"},{"markdown":"2"}]}`))
		}))
		defer srv.Close()
		c, err := dhhttp.NewCrawlClient(srv.URL, "k", srv.Client())
		require.NoError(t, err)
		stop := errors.New("stop")

		calls := 0
		_, err = c.PollCrawl(context.Background(), "j", "", func(*docharvest.CrawlPage) error {
			calls++
			return stop
		})

		require.ErrorIs(t, err, stop)
		assert.Same(t, stop, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("returns callback errors without recoding them", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"completed","data":[{"markdown":"1"}]}`))
		}))
		defer srv.Close()
		c, err := dhhttp.NewCrawlClient(srv.URL, "k", srv.Client())
		require.NoError(t, err)

		_, err = c.PollCrawl(context.Background(), "j", "", func(*docharvest.CrawlPage) error {
			return docharvest.Errorf(docharvest.ESTORAGE, "sink full")
		})

		require.Error(t, err)
		assert.Equal(t, docharvest.ESTORAGE, docharvest.ErrorCode(err))
		assert.Equal(t, "sink full", docharvest.ErrorMessage(err))
		assert.NotContains(t, err.Error(), "decode crawl status")
	})

	t.Run("reports malformed JSON as EPARSE", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"completed","data":[{"markdown":`))
		}))
		defer srv.Close()
		c, err := dhhttp.NewCrawlClient(srv.URL, "k", srv.Client())
		require.NoError(t, err)

		_, err = c.PollCrawl(context.Background(), "j", "", func(*docharvest.CrawlPage) error { return nil })

		assert.Equal(t, docharvest.EPARSE, docharvest.ErrorCode(err))
	})
}

package crawl_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/docharvest"
	"github.com/fwojciec/docharvest/crawl"
	"github.com/fwojciec/docharvest/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func website(url string) *docharvest.Source {
	return &docharvest.Source{Name: "site", Type: docharvest.SourceWebsite, URL: url, Enabled: true}
}

// newTestScraper returns a scraper with no pacing and no retries.
func newTestScraper() *crawl.Scraper {
	s := crawl.NewScraper()
	s.Limiter = nil
	s.Retry = docharvest.RetryPolicy{InitialDelay: time.Millisecond}
	s.PollInterval = time.Millisecond
	return s
}

// passthrough returns a content selector that treats the whole page as content.
func passthrough() *mock.ContentSelector {
	return &mock.ContentSelector{
		SelectContentFn: func(html string, selectors []string) (*docharvest.ExtractResult, error) {
			return &docharvest.ExtractResult{Title: "Page", ContentHTML: html}, nil
		},
		CandidateSelectorsFn: func(html string) []string { return []string{"main"} },
	}
}

func TestScraper_Managed(t *testing.T) {
	t.Parallel()

	t.Run("processes pages as polls return them", func(t *testing.T) {
		t.Parallel()

		polls := 0
		s := newTestScraper()
		s.Crawls = &mock.CrawlService{
			StartCrawlFn: func(_ context.Context, req docharvest.CrawlRequest) (string, error) {
				assert.Equal(t, "https://docs.example.com", req.URL)
				assert.Equal(t, crawl.DefaultMaxPages, req.Limit)
				return "job-1", nil
			},
			PollCrawlFn: func(_ context.Context, jobID, next string, fn func(*docharvest.CrawlPage) error) (*docharvest.CrawlJobStatus, error) {
				assert.Equal(t, "job-1", jobID)
				polls++
				pages := []*docharvest.CrawlPage{{URL: "https://docs.example.com/a", Title: "A", Markdown: "Alpha content."}}
				status := docharvest.CrawlScraping
				if polls == 2 {
					// Results are cumulative across polls.
					pages = append(pages, &docharvest.CrawlPage{URL: "https://docs.example.com/b", Title: "B", Markdown: "Beta content."})
					status = docharvest.CrawlCompleted
				}
				for _, p := range pages {
					if err := fn(p); err != nil {
						return nil, err
					}
				}
				return &docharvest.CrawlJobStatus{Status: status, Total: 2, Completed: len(pages)}, nil
			},
		}

		res := s.Scrape(context.Background(), website("https://docs.example.com"), nil)

		require.True(t, res.Success, res.Message)
		assert.Equal(t, 2, polls)
		assert.Equal(t, 2, res.Stats.TotalPages)
		require.Len(t, res.Chunks, 2)
		assert.Equal(t, "A", res.Chunks[0].Title)
		assert.Equal(t, "Beta content.", res.Chunks[1].Content)
		assert.Equal(t, docharvest.CategoryWebsite, res.Chunks[1].Category)
	})

	t.Run("follows result cursors without waiting", func(t *testing.T) {
		t.Parallel()

		var cursors []string
		s := newTestScraper()
		s.Crawls = &mock.CrawlService{
			StartCrawlFn: func(context.Context, docharvest.CrawlRequest) (string, error) { return "job", nil },
			PollCrawlFn: func(_ context.Context, _, next string, fn func(*docharvest.CrawlPage) error) (*docharvest.CrawlJobStatus, error) {
				cursors = append(cursors, next)
				if next == "" {
					require.NoError(t, fn(&docharvest.CrawlPage{URL: "https://e.com/1", Markdown: "One."}))
					return &docharvest.CrawlJobStatus{Status: docharvest.CrawlCompleted, Next: "https://api/next"}, nil
				}
				require.NoError(t, fn(&docharvest.CrawlPage{URL: "https://e.com/2", Markdown: "Two."}))
				return &docharvest.CrawlJobStatus{Status: docharvest.CrawlCompleted}, nil
			},
		}

		res := s.Scrape(context.Background(), website("https://e.com"), nil)

		require.True(t, res.Success)
		assert.Equal(t, []string{"", "https://api/next"}, cursors)
		assert.Len(t, res.Chunks, 2)
		assert.Equal(t, "https://e.com/1", res.Chunks[0].Title, "untitled pages use their URL")
	})

	t.Run("falls back to direct fetching when the job fails", func(t *testing.T) {
		t.Parallel()

		s := newTestScraper()
		s.Crawls = &mock.CrawlService{
			StartCrawlFn: func(context.Context, docharvest.CrawlRequest) (string, error) {
				return "", docharvest.Errorf(docharvest.EEXTERNAL, "quota exceeded")
			},
		}
		s.Fetcher = &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (string, error) { return "Direct content.", nil },
		}
		s.Content = passthrough()

		res := s.Scrape(context.Background(), website("https://e.com/docs"), nil)

		require.True(t, res.Success, res.Message)
		require.Len(t, res.Chunks, 1)
		assert.Equal(t, "Direct content.", res.Chunks[0].Content)
	})

	t.Run("keeps partial content when polling times out", func(t *testing.T) {
		t.Parallel()

		s := newTestScraper()
		s.PollTimeout = 50 * time.Millisecond
		s.Crawls = &mock.CrawlService{
			StartCrawlFn: func(context.Context, docharvest.CrawlRequest) (string, error) { return "job", nil },
			PollCrawlFn: func(_ context.Context, _, _ string, fn func(*docharvest.CrawlPage) error) (*docharvest.CrawlJobStatus, error) {
				if err := fn(&docharvest.CrawlPage{URL: "https://e.com/1", Markdown: "Partial."}); err != nil {
					return nil, err
				}
				return &docharvest.CrawlJobStatus{Status: docharvest.CrawlScraping}, nil
			},
		}

		res := s.Scrape(context.Background(), website("https://e.com"), nil)

		require.True(t, res.Success, res.Message)
		assert.Len(t, res.Chunks, 1)
	})
}

func TestScraper_Direct(t *testing.T) {
	t.Parallel()

	t.Run("visits sitemap URLs", func(t *testing.T) {
		t.Parallel()

		var fetched []string
		s := newTestScraper()
		s.Sitemaps = &mock.SitemapService{
			DiscoverURLsFn: func(_ context.Context, baseURL string, filter *docharvest.URLFilter) ([]string, error) {
				assert.Equal(t, "https://e.com/docs", baseURL)
				assert.Nil(t, filter)
				return []string{"https://e.com/docs/a", "https://e.com/docs/b"}, nil
			},
		}
		s.Fetcher = &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (string, error) {
				fetched = append(fetched, url)
				return "<p>" + url + "</p>", nil
			},
		}
		s.Content = passthrough()
		s.Converter = &mock.Converter{
			ConvertFn: func(html string) (string, error) {
				return strings.TrimSuffix(strings.TrimPrefix(html, "<p>"), "</p>"), nil
			},
		}

		res := s.Scrape(context.Background(), website("https://e.com/docs"), nil)

		require.True(t, res.Success, res.Message)
		assert.Equal(t, []string{"https://e.com/docs/a", "https://e.com/docs/b"}, fetched)
		require.Len(t, res.Chunks, 2)
		assert.Equal(t, "https://e.com/docs/a", res.Chunks[0].Content)
		assert.Equal(t, 2, res.Stats.TotalPages)
	})

	t.Run("waits on the limiter before every fetch", func(t *testing.T) {
		t.Parallel()

		var events []string
		s := newTestScraper()
		s.Sitemaps = &mock.SitemapService{
			DiscoverURLsFn: func(context.Context, string, *docharvest.URLFilter) ([]string, error) {
				return []string{"https://e.com/docs/a", "https://e.com/docs/b"}, nil
			},
		}
		s.Limiter = &mock.DomainLimiter{
			WaitFn: func(_ context.Context, domain string) error {
				events = append(events, "wait "+domain)
				return nil
			},
		}
		s.Fetcher = &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (string, error) {
				events = append(events, "fetch "+url)
				return "Page text for " + url, nil
			},
		}
		s.Content = passthrough()

		res := s.Scrape(context.Background(), website("https://e.com/docs"), nil)

		require.True(t, res.Success, res.Message)
		assert.Equal(t, []string{
			"wait e.com", "fetch https://e.com/docs/a",
			"wait e.com", "fetch https://e.com/docs/b",
		}, events)
	})

	t.Run("follows links up to the source depth", func(t *testing.T) {
		t.Parallel()

		var fetched []string
		s := newTestScraper()
		s.Fetcher = &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (string, error) {
				fetched = append(fetched, url)
				return "Content of " + url, nil
			},
		}
		s.Content = passthrough()
		s.Links = &mock.LinkSelector{
			ExtractLinksFn: func(_ string, baseURL string) ([]docharvest.DiscoveredLink, error) {
				return []docharvest.DiscoveredLink{
					{URL: baseURL + "/child", Priority: docharvest.PriorityNavigation},
					{URL: "https://other.com/docs/x", Priority: docharvest.PriorityTOC},
					{URL: "https://e.com/blog", Priority: docharvest.PriorityTOC},
					{URL: baseURL + "/ignored", Priority: docharvest.PriorityIgnore},
				}, nil
			},
		}

		src := website("https://e.com/docs")
		src.MaxDepth = 2
		res := s.Scrape(context.Background(), src, nil)

		require.True(t, res.Success, res.Message)
		assert.Equal(t, []string{
			"https://e.com/docs",
			"https://e.com/docs/child",
			"https://e.com/docs/child/child",
		}, fetched)
	})

	t.Run("applies include and exclude patterns to discovered links", func(t *testing.T) {
		t.Parallel()

		var fetched []string
		s := newTestScraper()
		s.Fetcher = &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (string, error) {
				fetched = append(fetched, url)
				return "Page text.", nil
			},
		}
		s.Content = passthrough()
		s.Links = &mock.LinkSelector{
			ExtractLinksFn: func(string, string) ([]docharvest.DiscoveredLink, error) {
				return []docharvest.DiscoveredLink{
					{URL: "https://e.com/guide/intro", Priority: docharvest.PriorityContent},
					{URL: "https://e.com/api/ref", Priority: docharvest.PriorityContent},
					{URL: "https://e.com/guide/old", Priority: docharvest.PriorityContent},
				}, nil
			},
		}

		src := website("https://e.com")
		src.IncludePaths = []string{"/guide/"}
		src.ExcludePaths = []string{"/old$"}
		s.Scrape(context.Background(), src, nil)

		assert.Equal(t, []string{"https://e.com", "https://e.com/guide/intro"}, fetched)
	})

	t.Run("tries the source selector, then extractors in order", func(t *testing.T) {
		t.Parallel()

		var selectors []string
		var calls []string
		s := newTestScraper()
		s.Fetcher = &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) { return "<html></html>", nil },
		}
		s.Content = &mock.ContentSelector{
			SelectContentFn: func(_ string, sel []string) (*docharvest.ExtractResult, error) {
				selectors = sel
				return nil, docharvest.Errorf(docharvest.ENOTFOUND, "no match")
			},
			CandidateSelectorsFn: func(string) []string { return []string{".theme-doc-markdown", "main"} },
		}
		s.Extractors = []docharvest.Extractor{
			&mock.Extractor{ExtractFn: func(string) (*docharvest.ExtractResult, error) {
				calls = append(calls, "first")
				return &docharvest.ExtractResult{ContentHTML: "  "}, nil
			}},
			&mock.Extractor{ExtractFn: func(string) (*docharvest.ExtractResult, error) {
				calls = append(calls, "second")
				return &docharvest.ExtractResult{Title: "Found", ContentHTML: "Extracted text."}, nil
			}},
			&mock.Extractor{ExtractFn: func(string) (*docharvest.ExtractResult, error) {
				calls = append(calls, "third")
				return nil, nil
			}},
		}

		src := website("https://e.com")
		src.Selector = "#docs"
		res := s.Scrape(context.Background(), src, nil)

		require.True(t, res.Success, res.Message)
		assert.Equal(t, []string{"#docs", ".theme-doc-markdown", "main"}, selectors)
		assert.Equal(t, []string{"first", "second"}, calls)
		require.Len(t, res.Chunks, 1)
		assert.Equal(t, "Found", res.Chunks[0].Title)
	})

	t.Run("skips failing pages", func(t *testing.T) {
		t.Parallel()

		s := newTestScraper()
		s.Sitemaps = &mock.SitemapService{
			DiscoverURLsFn: func(context.Context, string, *docharvest.URLFilter) ([]string, error) {
				return []string{"https://e.com/missing", "https://e.com/ok"}, nil
			},
		}
		s.Fetcher = &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (string, error) {
				if strings.HasSuffix(url, "missing") {
					return "", docharvest.Errorf(docharvest.ENOTFOUND, "not found")
				}
				return "Fine page.", nil
			},
		}
		s.Content = passthrough()

		res := s.Scrape(context.Background(), website("https://e.com"), nil)

		require.True(t, res.Success)
		assert.Len(t, res.Chunks, 1)
		assert.Contains(t, res.Message, "1 pages failed")
	})

	t.Run("fails when no page can be fetched", func(t *testing.T) {
		t.Parallel()

		s := newTestScraper()
		s.Fetcher = &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) {
				return "", docharvest.Errorf(docharvest.ENETWORK, "connection refused")
			},
		}

		res := s.Scrape(context.Background(), website("https://e.com"), nil)

		assert.False(t, res.Success)
		assert.Equal(t, docharvest.ENETWORK, docharvest.ErrorCode(res.Err))
		assert.Equal(t, "connection refused", res.Message)
	})

	t.Run("fails without a fetcher", func(t *testing.T) {
		t.Parallel()

		res := newTestScraper().Scrape(context.Background(), website("https://e.com"), nil)

		assert.False(t, res.Success)
		assert.Equal(t, docharvest.ECONFIG, docharvest.ErrorCode(res.Err))
	})
}

func TestScraper_Scrape(t *testing.T) {
	t.Parallel()

	t.Run("rejects non-website sources", func(t *testing.T) {
		t.Parallel()

		src := &docharvest.Source{Name: "repo", Type: docharvest.SourceRepository, URL: "https://github.com/o/r"}
		res := newTestScraper().Scrape(context.Background(), src, nil)

		assert.False(t, res.Success)
		assert.Equal(t, docharvest.EINVALID, docharvest.ErrorCode(res.Err))
	})

	t.Run("stops at the fragment ceiling", func(t *testing.T) {
		t.Parallel()

		paragraphs := make([]string, 10)
		for i := range paragraphs {
			paragraphs[i] = strings.Repeat("word ", 60)
		}
		s := newTestScraper()
		s.MaxChunks = 3
		s.Split = docharvest.SplitOptions{MaxSize: 400, MinSize: 0, Overlap: 0}
		s.Crawls = &mock.CrawlService{
			StartCrawlFn: func(context.Context, docharvest.CrawlRequest) (string, error) { return "job", nil },
			PollCrawlFn: func(_ context.Context, _, _ string, fn func(*docharvest.CrawlPage) error) (*docharvest.CrawlJobStatus, error) {
				for _, u := range []string{"https://e.com/1", "https://e.com/2"} {
					if err := fn(&docharvest.CrawlPage{URL: u, Markdown: strings.Join(paragraphs, "\n\n")}); err != nil {
						return nil, err
					}
				}
				return &docharvest.CrawlJobStatus{Status: docharvest.CrawlCompleted}, nil
			},
		}

		res := s.Scrape(context.Background(), website("https://e.com"), nil)

		require.True(t, res.Success)
		assert.Len(t, res.Chunks, 3)
		assert.Equal(t, 1, res.Stats.TotalPages)
		assert.Contains(t, res.Message, "ceiling")
	})

	t.Run("streams batches to the sink", func(t *testing.T) {
		t.Parallel()

		var got []*docharvest.Chunk
		sink := func(_ context.Context, chunks []*docharvest.Chunk) error {
			got = append(got, chunks...)
			return nil
		}
		s := newTestScraper()
		s.Fetcher = &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) { return "First.\n\nSecond.", nil },
		}
		s.Content = passthrough()

		res := s.Scrape(context.Background(), website("https://e.com"), sink)

		require.True(t, res.Success)
		assert.Empty(t, res.Chunks)
		assert.Len(t, got, 1)
		assert.Equal(t, 1, res.Stats.TotalChunks)
	})

	t.Run("reports sink failures", func(t *testing.T) {
		t.Parallel()

		s := newTestScraper()
		s.Fetcher = &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) { return "Text.", nil },
		}
		s.Content = passthrough()
		sink := func(context.Context, []*docharvest.Chunk) error {
			return docharvest.Errorf(docharvest.EINTERNAL, "store unavailable")
		}

		res := s.Scrape(context.Background(), website("https://e.com"), sink)

		assert.False(t, res.Success)
		assert.Equal(t, "store unavailable", res.Message)
	})
}

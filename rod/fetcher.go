// Package rod renders JavaScript-heavy documentation pages in headless
// Chrome before they are parsed.
package rod

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/fwojciec/docharvest"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultFetchTimeout bounds a single page render.
const DefaultFetchTimeout = 30 * time.Second

var _ docharvest.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered HTML using Chrome browser automation. The
// browser is recycled every MaxPages pages.
//
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager *BrowserManager
	timeout time.Duration
	closed  atomic.Bool
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*fetcherConfig)

type fetcherConfig struct {
	timeout  time.Duration
	maxPages int64
}

// WithFetchTimeout sets the per-page render timeout.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(c *fetcherConfig) {
		c.timeout = d
	}
}

// WithRecycleAfter sets the number of pages rendered before the browser is
// replaced.
func WithRecycleAfter(n int64) FetcherOption {
	return func(c *fetcherConfig) {
		c.maxPages = n
	}
}

// NewFetcher launches a headless Chrome browser. Close must be called when
// the Fetcher is no longer needed.
//
// Returns ECONFIG if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...FetcherOption) (*Fetcher, error) {
	cfg := fetcherConfig{timeout: DefaultFetchTimeout, maxPages: DefaultMaxPages}
	for _, opt := range opts {
		opt(&cfg)
	}

	manager, err := NewBrowserManager(WithMaxPages(cfg.maxPages))
	if err != nil {
		return nil, docharvest.WrapError(docharvest.ECONFIG, err, "starting headless browser")
	}
	return &Fetcher{manager: manager, timeout: cfg.timeout}, nil
}

// Fetch navigates to url, waits for the page to load and returns the
// rendered HTML.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.closed.Load() {
		return "", docharvest.Errorf(docharvest.EINVALID, "fetcher is closed")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	page, err := f.manager.Browser().Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", docharvest.WrapError(docharvest.EEXTERNAL, err, "opening browser page")
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.Navigate(url); err != nil {
		return "", fetchError(ctx, err, url)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fetchError(ctx, err, url)
	}
	html, err := page.HTML()
	if err != nil {
		return "", fetchError(ctx, err, url)
	}

	f.manager.IncrementPageCount()
	return html, nil
}

// fetchError keeps context errors matchable with errors.Is and codes the rest.
func fetchError(ctx context.Context, err error, url string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return docharvest.WrapError(docharvest.ETIMEOUT, ctxErr, "rendering %s timed out", url)
		}
		return ctxErr
	}
	return docharvest.WrapError(docharvest.ENETWORK, err, "rendering %s", url)
}

// Close releases browser resources. Close is safe to call multiple times.
func (f *Fetcher) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	return f.manager.Close()
}

// LauncherPID returns the process ID of the browser launcher.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
}

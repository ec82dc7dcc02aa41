package mock

import (
	"context"

	"github.com/fwojciec/docharvest"
)

var (
	_ docharvest.Fetcher           = (*Fetcher)(nil)
	_ docharvest.SitemapService    = (*SitemapService)(nil)
	_ docharvest.Extractor         = (*Extractor)(nil)
	_ docharvest.Converter         = (*Converter)(nil)
	_ docharvest.ContentSelector   = (*ContentSelector)(nil)
	_ docharvest.LinkSelector      = (*LinkSelector)(nil)
	_ docharvest.FrameworkDetector = (*FrameworkDetector)(nil)
	_ docharvest.DomainLimiter     = (*DomainLimiter)(nil)
	_ docharvest.CrawlService      = (*CrawlService)(nil)
)

// Fetcher is a mock implementation of docharvest.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (string, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) Close() error {
	return f.CloseFn()
}

// SitemapService is a mock implementation of docharvest.SitemapService.
type SitemapService struct {
	DiscoverURLsFn func(ctx context.Context, baseURL string, filter *docharvest.URLFilter) ([]string, error)
}

func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *docharvest.URLFilter) ([]string, error) {
	return s.DiscoverURLsFn(ctx, baseURL, filter)
}

// Extractor is a mock implementation of docharvest.Extractor.
type Extractor struct {
	ExtractFn func(html string) (*docharvest.ExtractResult, error)
}

func (e *Extractor) Extract(html string) (*docharvest.ExtractResult, error) {
	return e.ExtractFn(html)
}

// Converter is a mock implementation of docharvest.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}

// ContentSelector is a mock implementation of docharvest.ContentSelector.
type ContentSelector struct {
	SelectContentFn      func(html string, selectors []string) (*docharvest.ExtractResult, error)
	CandidateSelectorsFn func(html string) []string
}

func (c *ContentSelector) SelectContent(html string, selectors []string) (*docharvest.ExtractResult, error) {
	return c.SelectContentFn(html, selectors)
}

func (c *ContentSelector) CandidateSelectors(html string) []string {
	return c.CandidateSelectorsFn(html)
}

// LinkSelector is a mock implementation of docharvest.LinkSelector.
type LinkSelector struct {
	ExtractLinksFn func(html string, baseURL string) ([]docharvest.DiscoveredLink, error)
}

func (s *LinkSelector) ExtractLinks(html string, baseURL string) ([]docharvest.DiscoveredLink, error) {
	return s.ExtractLinksFn(html, baseURL)
}

// FrameworkDetector is a mock implementation of docharvest.FrameworkDetector.
type FrameworkDetector struct {
	DetectFn func(html string) docharvest.Framework
}

func (d *FrameworkDetector) Detect(html string) docharvest.Framework {
	return d.DetectFn(html)
}

// DomainLimiter is a mock implementation of docharvest.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return d.WaitFn(ctx, domain)
}

// CrawlService is a mock implementation of docharvest.CrawlService.
type CrawlService struct {
	StartCrawlFn func(ctx context.Context, req docharvest.CrawlRequest) (string, error)
	PollCrawlFn  func(ctx context.Context, jobID, next string, fn func(*docharvest.CrawlPage) error) (*docharvest.CrawlJobStatus, error)
}

func (c *CrawlService) StartCrawl(ctx context.Context, req docharvest.CrawlRequest) (string, error) {
	return c.StartCrawlFn(ctx, req)
}

func (c *CrawlService) PollCrawl(ctx context.Context, jobID, next string, fn func(*docharvest.CrawlPage) error) (*docharvest.CrawlJobStatus, error) {
	return c.PollCrawlFn(ctx, jobID, next, fn)
}

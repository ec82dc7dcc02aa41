package docharvest

import (
	"context"
	"regexp"
)

// Fetcher retrieves page HTML from URLs.
type Fetcher interface {
	// Fetch returns the HTML at url. Failures carry error codes
	// (ENOTFOUND, ERATELIMIT, ENETWORK, ...) so callers can decide to retry.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases resources held by the fetcher.
	Close() error
}

// ExtractResult holds the extracted content from an HTML page.
type ExtractResult struct {
	Title string

	// ContentHTML is the main content as HTML with boilerplate removed.
	ContentHTML string
}

// Extractor extracts main content from HTML pages, removing boilerplate.
type Extractor interface {
	Extract(html string) (*ExtractResult, error)
}

// ContentSelector locates main content with CSS selectors.
type ContentSelector interface {
	// SelectContent returns the content of the first selector that matches
	// meaningful text. Returns ENOTFOUND when none does.
	SelectContent(html string, selectors []string) (*ExtractResult, error)

	// CandidateSelectors returns the content selectors to try for html:
	// those of the detected framework first, then generic alternatives.
	CandidateSelectors(html string) []string
}

// Converter converts HTML to Markdown.
type Converter interface {
	Convert(html string) (string, error)
}

// SitemapService discovers URLs from website sitemaps.
type SitemapService interface {
	// DiscoverURLs finds all URLs from a site's sitemap, checking robots.txt
	// first and falling back to /sitemap.xml. Sitemap indexes are resolved
	// recursively. A nil filter passes every URL.
	DiscoverURLs(ctx context.Context, baseURL string, filter *URLFilter) ([]string, error)
}

// URLFilter specifies patterns for including/excluding URLs.
type URLFilter struct {
	// Include patterns - if set, only URLs matching at least one pattern are included.
	Include []*regexp.Regexp

	// Exclude patterns are applied after Include.
	Exclude []*regexp.Regexp
}

// Match returns true if the URL passes the filter.
// If the filter is nil, all URLs pass.
func (f *URLFilter) Match(url string) bool {
	if f == nil {
		return true
	}

	if len(f.Include) > 0 {
		matched := false
		for _, re := range f.Include {
			if re.MatchString(url) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, re := range f.Exclude {
		if re.MatchString(url) {
			return false
		}
	}
	return true
}

// LinkPriority represents crawl priority (higher = more important).
type LinkPriority int

// Link priority levels for crawl ordering.
const (
	PriorityIgnore     LinkPriority = 0
	PriorityFallback   LinkPriority = 10
	PriorityFooter     LinkPriority = 20
	PriorityContent    LinkPriority = 50
	PriorityNavigation LinkPriority = 100
	PriorityTOC        LinkPriority = 110
)

// DiscoveredLink is a URL found on a page, with crawl priority.
type DiscoveredLink struct {
	URL      string
	Priority LinkPriority
	Text     string
	Source   string // "nav", "sidebar", "content", "footer"

	// Depth is the number of link hops from the start page.
	Depth int
}

// LinkSelector extracts prioritized same-host links from HTML.
type LinkSelector interface {
	ExtractLinks(html string, baseURL string) ([]DiscoveredLink, error)
}

// Framework identifies a documentation framework.
type Framework string

// Supported documentation frameworks.
const (
	FrameworkUnknown    Framework = ""
	FrameworkDocusaurus Framework = "docusaurus"
	FrameworkMkDocs     Framework = "mkdocs"
	FrameworkSphinx     Framework = "sphinx"
	FrameworkVuePress   Framework = "vuepress"
	FrameworkVitePress  Framework = "vitepress"
	FrameworkGitBook    Framework = "gitbook"
	FrameworkNextra     Framework = "nextra"
)

// FrameworkDetector identifies documentation frameworks from HTML.
type FrameworkDetector interface {
	// Detect returns FrameworkUnknown if the framework cannot be determined.
	Detect(html string) Framework
}

// URLFrontier is a de-duplicating crawl queue.
type URLFrontier interface {
	// Push adds a link. Returns false if the URL was already seen.
	Push(link DiscoveredLink) bool

	// Pop returns the highest-priority link, or false when empty.
	Pop() (DiscoveredLink, bool)

	Len() int

	// Seen returns true if the URL has been processed or queued.
	Seen(url string) bool
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until a request to domain is allowed or ctx is done.
	Wait(ctx context.Context, domain string) error
}

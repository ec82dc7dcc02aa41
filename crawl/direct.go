package crawl

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/docharvest"
)

// direct fetches and parses pages itself. Seeds come from the sitemap when
// the site has one; otherwise links are followed from the source URL up to
// the source's depth.
func (r *siteRun) direct(ctx context.Context) error {
	if r.Fetcher == nil {
		return docharvest.Errorf(docharvest.ECONFIG, "no fetcher configured")
	}
	filter, err := r.src.URLFilter()
	if err != nil {
		return err
	}

	var seeds []string
	if r.Sitemaps != nil {
		seeds, err = r.Sitemaps.DiscoverURLs(ctx, r.src.URL, filter)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Warn("sitemap discovery failed", "error", err)
		}
	}
	if len(seeds) > 0 {
		r.log.Debug("crawling sitemap", "urls", len(seeds))
		return r.visitSeeds(ctx, seeds)
	}
	return r.walk(ctx, filter)
}

func (r *siteRun) visitSeeds(ctx context.Context, seeds []string) error {
	for i, u := range seeds {
		if i >= r.maxPages() {
			break
		}
		if _, err := r.visit(ctx, u); err != nil {
			return err
		}
	}
	return r.pageFailure()
}

// walk follows same-site links under the source URL's path.
func (r *siteRun) walk(ctx context.Context, filter *docharvest.URLFilter) error {
	start, err := url.Parse(r.src.URL)
	if err != nil {
		return docharvest.Errorf(docharvest.EINVALID, "invalid source URL %q", r.src.URL)
	}
	prefix := strings.TrimSuffix(start.Path, "/")

	frontier := NewFrontier(frontierExpectedURLs, frontierFalsePositiveRate)
	frontier.Push(docharvest.DiscoveredLink{URL: r.src.URL, Priority: docharvest.PriorityNavigation})

	visited := 0
	for visited < r.maxPages() {
		link, ok := frontier.Pop()
		if !ok {
			break
		}
		visited++

		html, err := r.visit(ctx, link.URL)
		if err != nil {
			return err
		}
		if html == "" || link.Depth >= r.maxDepth() || r.Links == nil {
			continue
		}

		links, err := r.Links.ExtractLinks(html, link.URL)
		if err != nil {
			r.log.Debug("link extraction failed", "url", link.URL, "error", err)
			continue
		}
		for _, l := range links {
			if l.Priority == docharvest.PriorityIgnore || !inScope(l.URL, start.Host, prefix) || !filter.Match(l.URL) {
				continue
			}
			l.Depth = link.Depth + 1
			frontier.Push(l)
		}
	}

	return r.pageFailure()
}

// pageFailure returns the last page error when no page produced content.
func (r *siteRun) pageFailure() error {
	if r.pages == 0 {
		return r.lastErr
	}
	return nil
}

// visit fetches one page and adds its content, returning the raw HTML for
// link discovery. A page that cannot be fetched or parsed is counted and
// skipped with empty HTML; the returned error is reserved for conditions
// that end the crawl (cancellation, sink failure, fragment ceiling).
func (r *siteRun) visit(ctx context.Context, pageURL string) (string, error) {
	html, err := r.fetch(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		r.pageFailed(pageURL, "fetch failed", err)
		return "", nil
	}

	title, markdown, err := r.extract(html)
	if err != nil {
		r.pageFailed(pageURL, "extraction failed", err)
		return html, nil
	}
	if err := r.addPage(ctx, pageURL, title, markdown); err != nil {
		return "", err
	}
	return html, nil
}

func (r *siteRun) fetch(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", docharvest.Errorf(docharvest.EINVALID, "invalid URL %q", pageURL)
	}

	policy := r.Retry
	if dl, ok := r.Limiter.(*DomainLimiter); ok {
		onRetry := policy.OnRetry
		policy.OnRetry = func(attempt int, delay time.Duration, err error) {
			if docharvest.ErrorCode(err) == docharvest.ERATELIMIT {
				dl.Backoff(u.Host)
			}
			if onRetry != nil {
				onRetry(attempt, delay, err)
			}
		}
	}

	return docharvest.Retry(ctx, policy, func(ctx context.Context) (string, error) {
		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx, u.Host); err != nil {
				return "", err
			}
		}
		return r.Fetcher.Fetch(ctx, pageURL)
	})
}

// extract finds the main content of a page and converts it to Markdown.
// The source's selector is tried first, then the candidate selectors, then
// each extractor in order.
func (r *siteRun) extract(html string) (title, markdown string, err error) {
	var res *docharvest.ExtractResult
	if r.Content != nil {
		selectors := append([]string{r.src.Selector}, r.Content.CandidateSelectors(html)...)
		res, err = r.Content.SelectContent(html, selectors)
	}
	for _, ex := range r.Extractors {
		if res != nil && strings.TrimSpace(res.ContentHTML) != "" {
			break
		}
		res, err = ex.Extract(html)
	}
	if res == nil || strings.TrimSpace(res.ContentHTML) == "" {
		if err == nil {
			err = docharvest.Errorf(docharvest.ENOTFOUND, "no main content found")
		}
		return "", "", err
	}

	if r.Converter == nil {
		return res.Title, res.ContentHTML, nil
	}
	markdown, err = r.Converter.Convert(res.ContentHTML)
	if err != nil {
		return "", "", err
	}
	return res.Title, markdown, nil
}

func (r *siteRun) pageFailed(pageURL, msg string, err error) {
	r.failed++
	r.lastErr = err
	r.log.Warn(msg, "url", pageURL, "error", err)
}

func inScope(rawURL, host, prefix string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != host {
		return false
	}
	return prefix == "" || u.Path == prefix || strings.HasPrefix(u.Path, prefix+"/")
}

package http

import (
	"bufio"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/fwojciec/docharvest"
)

var _ docharvest.SitemapService = (*SitemapService)(nil)

// MaxSitemaps caps the sitemap documents read per discovery, indexes included.
const MaxSitemaps = 50

// SitemapService discovers URLs from robots.txt and sitemap.xml.
type SitemapService struct {
	client *http.Client
}

// NewSitemapService creates a SitemapService. A nil client gets the
// fetcher's timeout and redirect cap.
func NewSitemapService(client *http.Client) *SitemapService {
	if client == nil {
		client = newClient(DefaultFetchTimeout, DefaultMaxRedirects)
	}
	return &SitemapService{client: client}
}

// DiscoverURLs finds all URLs from a site's sitemaps. Returns an empty slice
// (not nil) when the site has none.
//
// When baseURL has a non-root path (e.g. https://example.com/docs/), only
// URLs under that path are returned.
func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *docharvest.URLFilter) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, docharvest.Errorf(docharvest.EINVALID, "invalid base URL %q", baseURL)
	}
	prefix := strings.TrimSuffix(base.Path, "/")
	root := &url.URL{Scheme: base.Scheme, Host: base.Host}

	sitemaps, err := s.findSitemaps(ctx, root)
	if err != nil {
		return nil, err
	}

	w := &sitemapWalk{svc: s, seen: make(map[string]bool)}
	for _, sm := range sitemaps {
		if err := w.visit(ctx, sm); err != nil {
			return nil, err
		}
	}

	out := []string{}
	dedup := make(map[string]bool, len(w.urls))
	for _, u := range w.urls {
		if dedup[u] || !underPath(u, prefix) || !filter.Match(u) {
			continue
		}
		dedup[u] = true
		out = append(out, u)
	}
	return out, nil
}

// underPath reports whether rawURL's path is prefix or below it, on a path
// segment boundary: /docs matches /docs/intro but not /documentation.
func underPath(rawURL, prefix string) bool {
	if prefix == "" {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Path == prefix || strings.HasPrefix(u.Path, prefix+"/")
}

// findSitemaps reads Sitemap: directives from robots.txt, falling back to
// /sitemap.xml when robots.txt lists none.
func (s *SitemapService) findSitemaps(ctx context.Context, root *url.URL) ([]string, error) {
	robots := root.ResolveReference(&url.URL{Path: "/robots.txt"}).String()
	if body, err := s.get(ctx, robots); err == nil {
		found := parseRobots(body)
		body.Close()
		if len(found) > 0 {
			return found, nil
		}
	} else if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	fallback := root.ResolveReference(&url.URL{Path: "/sitemap.xml"}).String()
	body, err := s.get(ctx, fallback)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	body.Close()
	return []string{fallback}, nil
}

func parseRobots(r io.Reader) []string {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) > 8 && strings.EqualFold(line[:8], "sitemap:") {
			if u := strings.TrimSpace(line[8:]); u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}

type sitemapWalk struct {
	svc  *SitemapService
	seen map[string]bool
	urls []string
}

// visit reads one sitemap, recursing into sitemap indexes.
func (w *sitemapWalk) visit(ctx context.Context, sitemapURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.seen[sitemapURL] || len(w.seen) >= MaxSitemaps {
		return nil
	}
	w.seen[sitemapURL] = true

	body, err := w.svc.get(ctx, sitemapURL)
	if err != nil {
		return err
	}
	defer body.Close()

	var r io.Reader = body
	if strings.HasSuffix(sitemapURL, ".gz") {
		gz, err := gzip.NewReader(body)
		if err != nil {
			return docharvest.WrapError(docharvest.EPARSE, err, "decompress sitemap %s", sitemapURL)
		}
		defer gz.Close()
		r = gz
	}

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return docharvest.WrapError(docharvest.EPARSE, err, "parse sitemap %s", sitemapURL)
	}
	root := doc.Root()
	if root == nil {
		return docharvest.Errorf(docharvest.EPARSE, "empty sitemap %s", sitemapURL)
	}

	if root.Tag == "sitemapindex" {
		for _, child := range locs(root, "sitemap") {
			if err := w.visit(ctx, child); err != nil {
				return err
			}
		}
		return nil
	}
	w.urls = append(w.urls, locs(root, "url")...)
	return nil
}

// locs returns the trimmed <loc> texts of root's children named tag.
func locs(root *etree.Element, tag string) []string {
	var out []string
	for _, el := range root.SelectElements(tag) {
		if loc := el.SelectElement("loc"); loc != nil {
			if u := strings.TrimSpace(loc.Text()); u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}

func (s *SitemapService) get(ctx context.Context, target string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, docharvest.Errorf(docharvest.EINVALID, "invalid URL %q: %v", target, err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		cancel()
		return nil, docharvest.ClassifyError(err)
	}
	if resp.StatusCode != http.StatusOK {
		cancel()
		return nil, statusError(resp, target)
	}
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

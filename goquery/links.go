package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docharvest"
)

// SelectorConfig defines a CSS selector with its priority and source label.
type SelectorConfig struct {
	Selector string
	Priority docharvest.LinkPriority
	Source   string
}

// ExtractLinks extracts same-host links from HTML using configs.
// Links are deduplicated by URL, keeping the highest priority version, and
// returned in order of first occurrence.
//
// With fallback set, any other anchor under the base URL's path prefix is
// added with PriorityFallback, so sites with non-semantic markup still get
// their links discovered.
func ExtractLinks(html, baseURL string, configs []SelectorConfig, fallback bool) ([]docharvest.DiscoveredLink, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, docharvest.Errorf(docharvest.EPARSE, "failed to parse HTML: %v", err)
	}
	return extractLinks(doc, baseURL, configs, fallback)
}

func extractLinks(doc *goquery.Document, baseURL string, configs []SelectorConfig, fallback bool) ([]docharvest.DiscoveredLink, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, docharvest.Errorf(docharvest.EINVALID, "invalid base URL: %v", err)
	}

	seen := make(map[string]int)
	var out []docharvest.DiscoveredLink

	add := func(sel *goquery.Selection, priority docharvest.LinkPriority, source string, prefixOnly bool) {
		href, ok := sel.Attr("href")
		if !ok || href == "" || isNonHTTPLink(href) {
			return
		}
		resolved := resolveURL(base, href)
		if resolved == "" {
			return
		}
		u, err := url.Parse(resolved)
		if err != nil || u.Host != base.Host {
			return
		}
		if prefixOnly && base.Path != "" && !strings.HasPrefix(u.Path, base.Path) {
			return
		}

		link := docharvest.DiscoveredLink{
			URL:      resolved,
			Priority: priority,
			Text:     strings.TrimSpace(sel.Text()),
			Source:   source,
		}
		if idx, ok := seen[resolved]; ok {
			if priority > out[idx].Priority {
				out[idx] = link
			}
			return
		}
		seen[resolved] = len(out)
		out = append(out, link)
	}

	for _, c := range configs {
		doc.Find(c.Selector).Each(func(_ int, sel *goquery.Selection) {
			add(sel, c.Priority, c.Source, false)
		})
	}
	if fallback {
		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			add(sel, docharvest.PriorityFallback, "fallback", true)
		})
	}

	return out, nil
}

// resolveURL resolves href against base with the fragment stripped.
// Returns empty string for unparsable or self-referential links.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""

	self := *base
	self.Fragment = ""
	if resolved.String() == self.String() {
		return ""
	}
	return resolved.String()
}

func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(href, scheme) {
			return true
		}
	}
	return false
}

package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docharvest"
)

var (
	_ docharvest.LinkSelector    = (*Registry)(nil)
	_ docharvest.ContentSelector = (*Registry)(nil)
)

// Registry maps documentation frameworks to their profiles and picks one by
// detecting the framework of each page. Unknown frameworks use
// GenericProfile.
type Registry struct {
	profiles map[docharvest.Framework]Profile

	// Fallback adds low-priority links under the base path prefix.
	Fallback bool

	// MinTextLength is the trimmed text length a selection needs to count
	// as content.
	MinTextLength int
}

// NewRegistry creates a Registry with the built-in profiles.
func NewRegistry() *Registry {
	r := &Registry{
		profiles:      make(map[docharvest.Framework]Profile, len(DefaultProfiles)),
		Fallback:      true,
		MinTextLength: DefaultMinTextLength,
	}
	for f, p := range DefaultProfiles {
		r.profiles[f] = p
	}
	return r
}

// Register adds or replaces the profile for a framework.
func (r *Registry) Register(framework docharvest.Framework, p Profile) {
	r.profiles[framework] = p
}

// Profile returns the profile for a framework, or GenericProfile.
func (r *Registry) Profile(framework docharvest.Framework) Profile {
	if p, ok := r.profiles[framework]; ok {
		return p
	}
	return GenericProfile
}

// ExtractLinks detects the page's framework and extracts links with its profile.
func (r *Registry) ExtractLinks(html, baseURL string) ([]docharvest.DiscoveredLink, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, docharvest.Errorf(docharvest.EPARSE, "failed to parse HTML: %v", err)
	}
	return extractLinks(doc, baseURL, r.Profile(detectDocument(doc)).Links, r.Fallback)
}

// CandidateSelectors returns the detected framework's content selectors
// followed by the generic ones, without duplicates.
func (r *Registry) CandidateSelectors(html string) []string {
	var framework docharvest.Framework
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		framework = detectDocument(doc)
	}

	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{r.Profile(framework).ContentSelectors, GenericContentSelectors} {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// SelectContent returns the first selector match with enough text.
func (r *Registry) SelectContent(html string, selectors []string) (*docharvest.ExtractResult, error) {
	return SelectContent(html, selectors, r.MinTextLength)
}

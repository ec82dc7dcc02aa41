package goquery_test

import (
	"testing"

	"github.com/fwojciec/docharvest"
	"github.com/fwojciec/docharvest/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ExtractLinks(t *testing.T) {
	t.Parallel()

	t.Run("uses the Docusaurus profile when detected", func(t *testing.T) {
		t.Parallel()

		html := page("", `
<div class="theme-doc-sidebar-container"><a href="/docs/intro">Intro</a></div>
<div class="table-of-contents"><a href="/docs/intro/install">Install</a></div>
<footer><a href="/blog">Blog</a></footer>`)

		links, err := goquery.NewRegistry().ExtractLinks(html, "https://example.com/docs/")

		require.NoError(t, err)
		byURL := make(map[string]docharvest.DiscoveredLink)
		for _, l := range links {
			byURL[l.URL] = l
		}
		assert.Equal(t, docharvest.PriorityTOC, byURL["https://example.com/docs/intro/install"].Priority)
		assert.Equal(t, docharvest.PriorityNavigation, byURL["https://example.com/docs/intro"].Priority)
		assert.Equal(t, docharvest.PriorityFooter, byURL["https://example.com/blog"].Priority)
	})

	t.Run("uses the generic profile for unknown sites", func(t *testing.T) {
		t.Parallel()

		html := page("", `<aside><a href="/a">A</a></aside><nav><a href="/b">B</a></nav>`)

		links, err := goquery.NewRegistry().ExtractLinks(html, "https://example.com")

		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.Equal(t, docharvest.PriorityTOC, links[0].Priority)
		assert.Equal(t, docharvest.PriorityNavigation, links[1].Priority)
	})

	t.Run("registered profiles replace built-ins", func(t *testing.T) {
		t.Parallel()

		r := goquery.NewRegistry()
		r.Fallback = false
		r.Register(docharvest.FrameworkNextra, goquery.Profile{
			Links: []goquery.SelectorConfig{{Selector: ".custom a[href]", Priority: docharvest.PriorityContent, Source: "custom"}},
		})
		html := page("", `<div class="nextra-toc"><a href="/toc">toc</a></div><div class="custom"><a href="/c">c</a></div>`)

		links, err := r.ExtractLinks(html, "https://example.com")

		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "custom", links[0].Source)
	})
}

func TestRegistry_CandidateSelectors(t *testing.T) {
	t.Parallel()

	t.Run("puts framework selectors first", func(t *testing.T) {
		t.Parallel()

		html := page(`<meta name="generator" content="mkdocs-1.5">`, "")

		got := goquery.NewRegistry().CandidateSelectors(html)

		assert.Equal(t, ".md-content__inner", got[0])
		assert.Contains(t, got, ".markdown-body")
	})

	t.Run("lists generic selectors once for unknown sites", func(t *testing.T) {
		t.Parallel()

		got := goquery.NewRegistry().CandidateSelectors(page("", "<p>hi</p>"))

		assert.Equal(t, goquery.GenericContentSelectors, got)
	})
}

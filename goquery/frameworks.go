package goquery

import "github.com/fwojciec/docharvest"

// Profile describes where a documentation framework keeps its content and
// its links.
type Profile struct {
	// ContentSelectors locate the main content, most specific first.
	ContentSelectors []string

	// Links lists link selectors with their crawl priority.
	Links []SelectorConfig
}

// GenericContentSelectors are tried after any framework-specific selector.
var GenericContentSelectors = []string{
	"main",
	"article",
	"[role=main]",
	".content",
	"#content",
	".markdown-body",
	".documentation",
	".docs-content",
}

func links(priority docharvest.LinkPriority, source string, selectors ...string) []SelectorConfig {
	configs := make([]SelectorConfig, len(selectors))
	for i, s := range selectors {
		configs[i] = SelectorConfig{Selector: s + " a[href]", Priority: priority, Source: source}
	}
	return configs
}

func profile(content []string, groups ...[]SelectorConfig) Profile {
	var all []SelectorConfig
	for _, g := range groups {
		all = append(all, g...)
	}
	return Profile{ContentSelectors: content, Links: all}
}

var vitePressProfile = profile(
	[]string{".VPDoc .vp-doc", ".theme-default-content", ".VPDoc", "main"},
	links(docharvest.PriorityTOC, "toc", ".VPDocAsideOutline"),
	links(docharvest.PriorityNavigation, "sidebar", ".VPSidebar", ".sidebar-links", ".sidebar"),
	links(docharvest.PriorityNavigation, "navbar", ".VPNav"),
	links(docharvest.PriorityContent, "content", ".theme-default-content", ".VPDoc", "main"),
	links(docharvest.PriorityFooter, "footer", "footer"),
)

// DefaultProfiles holds the built-in framework profiles.
var DefaultProfiles = map[docharvest.Framework]Profile{
	docharvest.FrameworkDocusaurus: profile(
		[]string{".theme-doc-markdown", "article", "main"},
		links(docharvest.PriorityTOC, "toc", ".table-of-contents"),
		links(docharvest.PriorityNavigation, "sidebar", ".theme-doc-sidebar-container"),
		links(docharvest.PriorityNavigation, "navbar", "nav.navbar"),
		links(docharvest.PriorityContent, "content", "article", "main"),
		links(docharvest.PriorityFooter, "footer", "footer"),
	),
	docharvest.FrameworkGitBook: profile(
		[]string{"[data-testid='page.contentEditor']", "main", "article"},
		links(docharvest.PriorityTOC, "toc", "[data-testid='page.desktopTableOfContents']"),
		links(docharvest.PriorityNavigation, "sidebar", "[data-testid='space.sidebar']"),
		links(docharvest.PriorityNavigation, "navbar", "[data-testid='space.header']"),
		links(docharvest.PriorityContent, "content", "[data-testid='page.contentEditor']", "main", "article"),
		links(docharvest.PriorityFooter, "footer", "footer"),
	),
	docharvest.FrameworkVitePress: vitePressProfile,
	docharvest.FrameworkVuePress:  vitePressProfile,
	docharvest.FrameworkMkDocs: profile(
		[]string{".md-content__inner", ".md-content", "article"},
		links(docharvest.PriorityTOC, "toc", ".md-sidebar--secondary", "[data-md-component='toc']"),
		links(docharvest.PriorityNavigation, "sidebar", ".md-nav--primary", "[data-md-component='navigation']"),
		links(docharvest.PriorityContent, "content", ".md-content", "article"),
		links(docharvest.PriorityFooter, "footer", "footer"),
	),
	docharvest.FrameworkSphinx: profile(
		[]string{"[role=main]", ".document .body", ".body", "article"},
		links(docharvest.PriorityTOC, "toc", ".toctree-wrapper", "#localtoc"),
		links(docharvest.PriorityNavigation, "sidebar", ".wy-nav-side", ".wy-menu-vertical", ".sphinxsidebar"),
		links(docharvest.PriorityContent, "content", ".document", ".body", "article"),
		links(docharvest.PriorityFooter, "footer", "footer"),
	),
	docharvest.FrameworkNextra: profile(
		[]string{"main article", "main", "article"},
		links(docharvest.PriorityTOC, "toc", ".nextra-toc"),
		links(docharvest.PriorityNavigation, "sidebar", ".nextra-sidebar"),
		links(docharvest.PriorityNavigation, "navbar", ".nextra-navbar"),
		links(docharvest.PriorityContent, "content", "main", "article"),
		links(docharvest.PriorityFooter, "footer", "footer"),
	),
}

// GenericProfile is used when the framework is unknown.
var GenericProfile = profile(
	GenericContentSelectors,
	links(docharvest.PriorityTOC, "toc", ".toc", ".table-of-contents", ".sidebar", "aside"),
	links(docharvest.PriorityNavigation, "nav", "nav", `[role="navigation"]`, ".nav", ".menu", ".navbar"),
	links(docharvest.PriorityContent, "content", "main", "article", ".content", ".doc-content"),
	links(docharvest.PriorityFooter, "footer", "footer", ".footer"),
)

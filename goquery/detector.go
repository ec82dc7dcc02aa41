package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docharvest"
)

var _ docharvest.FrameworkDetector = (*Detector)(nil)

// frameworkMarkers lists structural markers per framework in detection
// order. VitePress is checked before VuePress since it reuses some of its
// class names.
var frameworkMarkers = []struct {
	framework docharvest.Framework
	selectors []string
}{
	{docharvest.FrameworkDocusaurus, []string{"#__docusaurus_skipToContent_fallback", ".theme-doc-sidebar-container", "[data-rh][data-theme]"}},
	{docharvest.FrameworkMkDocs, []string{"[data-md-color-scheme]", "[data-md-component]", ".md-nav--primary"}},
	{docharvest.FrameworkSphinx, []string{".toctree-wrapper", ".wy-nav-side", ".wy-menu-vertical", ".sphinxsidebar"}},
	{docharvest.FrameworkVitePress, []string{"#VPContent", ".VPDoc", ".VPDocAsideOutline"}},
	{docharvest.FrameworkVuePress, []string{".theme-default-content", ".sidebar-links", ".vuepress-navbar"}},
	{docharvest.FrameworkGitBook, []string{"[data-testid='space.sidebar']", "[data-testid='page.desktopTableOfContents']"}},
	{docharvest.FrameworkNextra, []string{".nextra-navbar", ".nextra-sidebar", ".nextra-toc"}},
}

// generatorNames maps substrings of <meta name="generator"> to frameworks.
// Order matters: "vitepress" must match before "vuepress".
var generatorNames = []struct {
	name      string
	framework docharvest.Framework
}{
	{"sphinx", docharvest.FrameworkSphinx},
	{"gitbook", docharvest.FrameworkGitBook},
	{"docusaurus", docharvest.FrameworkDocusaurus},
	{"mkdocs", docharvest.FrameworkMkDocs},
	{"vitepress", docharvest.FrameworkVitePress},
	{"vuepress", docharvest.FrameworkVuePress},
	{"nextra", docharvest.FrameworkNextra},
}

// Detector identifies documentation frameworks from HTML content.
// The meta generator tag is trusted first, then framework-specific CSS
// classes and data attributes.
type Detector struct{}

// NewDetector creates a new Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect analyzes HTML and returns the identified framework.
func (d *Detector) Detect(html string) docharvest.Framework {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return docharvest.FrameworkUnknown
	}
	return detectDocument(doc)
}

func detectDocument(doc *goquery.Document) docharvest.Framework {
	if generator, ok := doc.Find("meta[name='generator']").Last().Attr("content"); ok {
		generator = strings.ToLower(generator)
		for _, g := range generatorNames {
			if strings.Contains(generator, g.name) {
				return g.framework
			}
		}
	}

	for _, m := range frameworkMarkers {
		for _, sel := range m.selectors {
			if doc.Find(sel).Length() > 0 {
				return m.framework
			}
		}
		if m.framework == docharvest.FrameworkGitBook && hasGitBookClasses(doc) {
			return m.framework
		}
	}

	return docharvest.FrameworkUnknown
}

// hasGitBookClasses reports whether the html element carries at least two of
// GitBook's theme classes.
func hasGitBookClasses(doc *goquery.Document) bool {
	class, _ := doc.Find("html").Attr("class")
	count := 0
	for _, c := range []string{"circular-corners", "theme-clean", "tint"} {
		if strings.Contains(class, c) {
			count++
		}
	}
	return count >= 2
}

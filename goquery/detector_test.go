package goquery_test

import (
	"testing"

	"github.com/fwojciec/docharvest"
	"github.com/fwojciec/docharvest/goquery"
	"github.com/stretchr/testify/assert"
)

func page(head, body string) string {
	return "<!DOCTYPE html><html><head><title>Docs</title>" + head + "</head><body>" + body + "</body></html>"
}

func TestDetector_Detect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want docharvest.Framework
	}{
		{
			name: "Docusaurus from skip-to-content anchor",
			html: page("", `<a id="__docusaurus_skipToContent_fallback" href="#__docusaurus_skipToContent_fallback">Skip</a>`),
			want: docharvest.FrameworkDocusaurus,
		},
		{
			name: "Docusaurus from sidebar container",
			html: page("", `<div class="theme-doc-sidebar-container"><nav class="menu"><a href="/docs">Docs</a></nav></div>`),
			want: docharvest.FrameworkDocusaurus,
		},
		{
			name: "MkDocs from color scheme attribute",
			html: page("", `<div data-md-color-scheme="default"><main>Docs</main></div>`),
			want: docharvest.FrameworkMkDocs,
		},
		{
			name: "Sphinx from meta generator",
			html: page(`<meta name="generator" content="Sphinx 7.2.6">`, `<div class="body">Docs</div>`),
			want: docharvest.FrameworkSphinx,
		},
		{
			name: "Sphinx from ReadTheDocs sidebar",
			html: page("", `<nav class="wy-nav-side"><a href="/a">A</a></nav>`),
			want: docharvest.FrameworkSphinx,
		},
		{
			name: "VitePress from VPContent",
			html: page("", `<div id="VPContent"><div class="theme-default-content">x</div></div>`),
			want: docharvest.FrameworkVitePress,
		},
		{
			name: "VuePress from theme content",
			html: page("", `<div class="theme-default-content">Docs</div>`),
			want: docharvest.FrameworkVuePress,
		},
		{
			name: "GitBook from html classes",
			html: `<html class="circular-corners theme-clean"><body>Docs</body></html>`,
			want: docharvest.FrameworkGitBook,
		},
		{
			name: "GitBook from sidebar test ID",
			html: page("", `<aside data-testid="space.sidebar"><a href="/a">A</a></aside>`),
			want: docharvest.FrameworkGitBook,
		},
		{
			name: "Nextra from table of contents",
			html: page("", `<nav class="nextra-toc"><a href="#a">A</a></nav>`),
			want: docharvest.FrameworkNextra,
		},
		{
			name: "meta generator wins over class markers",
			html: page(`<meta name="generator" content="MkDocs-1.5">`, `<div class="toctree-wrapper">x</div>`),
			want: docharvest.FrameworkMkDocs,
		},
		{
			name: "VitePress generator is not mistaken for VuePress",
			html: page(`<meta name="generator" content="VitePress v1.0.0">`, ""),
			want: docharvest.FrameworkVitePress,
		},
		{
			name: "unknown for generic HTML",
			html: page("", `<nav><a href="/a">A</a></nav><main><p>Hello</p></main>`),
			want: docharvest.FrameworkUnknown,
		},
		{
			name: "unknown for empty input",
			html: "",
			want: docharvest.FrameworkUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, goquery.NewDetector().Detect(tt.html))
		})
	}
}

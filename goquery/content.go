package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docharvest"
)

// DefaultMinTextLength is the text a selection needs before it is taken
// as the page's content.
const DefaultMinTextLength = 50

// boilerplate is stripped from a selection before it is returned.
const boilerplate = "script, style, noscript, iframe, nav, aside, footer, form, button, " +
	".sidebar, .toc, .table-of-contents, .breadcrumbs, .edit-this-page, .pagination-nav, .headerlink"

// SelectContent tries selectors in order and returns the first match whose
// text, after boilerplate removal, is at least minText characters.
// Blank selectors are skipped. Returns ENOTFOUND when nothing matches.
func SelectContent(html string, selectors []string, minText int) (*docharvest.ExtractResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, docharvest.Errorf(docharvest.EPARSE, "failed to parse HTML: %v", err)
	}

	for _, selector := range selectors {
		if strings.TrimSpace(selector) == "" {
			continue
		}
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		sel = sel.Clone()
		sel.Find(boilerplate).Remove()
		if len(strings.TrimSpace(sel.Text())) < minText {
			continue
		}
		content, err := goquery.OuterHtml(sel)
		if err != nil {
			return nil, docharvest.Errorf(docharvest.EPARSE, "failed to render %q: %v", selector, err)
		}
		return &docharvest.ExtractResult{
			Title:       pageTitle(doc, sel),
			ContentHTML: content,
		}, nil
	}

	return nil, docharvest.Errorf(docharvest.ENOTFOUND, "no content selector matched")
}

// pageTitle prefers the content's first h1, then the document title.
func pageTitle(doc *goquery.Document, content *goquery.Selection) string {
	if h1 := strings.TrimSpace(content.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

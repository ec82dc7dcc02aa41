package htmltomarkdown

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/docharvest"
)

var _ docharvest.Converter = (*Converter)(nil)

var (
	trailingSpace = regexp.MustCompile(`(?m)[ \t]+$`)
	extraBlanks   = regexp.MustCompile(`\n{3,}`)
)

// Converter turns extracted page HTML into Markdown ready for paragraph
// splitting: trailing spaces are removed and runs of blank lines collapse to
// one, so every paragraph boundary is a single blank line.
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a Converter with CommonMark and table support.
func NewConverter() *Converter {
	return &Converter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Convert transforms HTML content into Markdown.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", docharvest.Errorf(docharvest.EINVALID, "empty HTML input")
	}

	md, err := c.conv.ConvertString(html)
	if err != nil {
		return "", docharvest.WrapError(docharvest.EPARSE, err, "convert HTML to markdown")
	}

	md = trailingSpace.ReplaceAllString(md, "")
	md = extraBlanks.ReplaceAllString(md, "\n\n")
	return strings.TrimSpace(md), nil
}

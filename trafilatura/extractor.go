package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/docharvest"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

var _ docharvest.Extractor = (*Extractor)(nil)

// Extractor finds the main content of pages that no CSS selector matched,
// using go-trafilatura with its readability fallback enabled.
type Extractor struct {
	// ExcludeTables drops tables from the output.
	ExcludeTables bool
}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the main content. Returns ENOTFOUND when trafilatura finds
// no content node.
func (e *Extractor) Extract(rawHTML string) (*docharvest.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, docharvest.Errorf(docharvest.EINVALID, "empty HTML input")
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), trafilatura.Options{
		EnableFallback: true,
		ExcludeTables:  e.ExcludeTables,
	})
	if err != nil {
		return nil, docharvest.WrapError(docharvest.EPARSE, err, "trafilatura extraction")
	}
	if result.ContentNode == nil {
		return nil, docharvest.Errorf(docharvest.ENOTFOUND, "trafilatura found no content")
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, result.ContentNode); err != nil {
		return nil, docharvest.WrapError(docharvest.EPARSE, err, "render content node")
	}

	return &docharvest.ExtractResult{
		Title:       result.Metadata.Title,
		ContentHTML: buf.String(),
	}, nil
}

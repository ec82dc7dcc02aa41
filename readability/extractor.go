package readability

import (
	"strings"

	"github.com/fwojciec/docharvest"
	"github.com/go-shiori/go-readability"
)

var _ docharvest.Extractor = (*Extractor)(nil)

// Extractor is the last-resort main-content extractor, based on Mozilla's
// Readability algorithm.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the readable article of rawHTML.
func (e *Extractor) Extract(rawHTML string) (*docharvest.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, docharvest.Errorf(docharvest.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, docharvest.WrapError(docharvest.EPARSE, err, "readability extraction")
	}
	if strings.TrimSpace(article.TextContent) == "" {
		return nil, docharvest.Errorf(docharvest.ENOTFOUND, "readability found no content")
	}

	return &docharvest.ExtractResult{
		Title:       article.Title,
		ContentHTML: article.Content,
	}, nil
}

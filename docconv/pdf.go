// Package docconv extracts text from PDF documents with code.sajari.com/docconv.
//
// PDF conversion shells out to pdftotext (poppler-utils), which must be on
// the PATH at run time.
package docconv

import (
	"context"
	"io"
	"strings"

	"code.sajari.com/docconv"
	"github.com/fwojciec/docharvest"
)

const mimePDF = "application/pdf"

var _ docharvest.PDFConverter = (*PDFConverter)(nil)

// PDFConverter implements docharvest.PDFConverter.
type PDFConverter struct{}

// NewPDFConverter creates a new PDFConverter.
func NewPDFConverter() *PDFConverter {
	return &PDFConverter{}
}

// ConvertPDF returns the plain text of the PDF read from r. Documents
// without extractable text are reported as EPARSE.
func (c *PDFConverter) ConvertPDF(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	res, err := docconv.Convert(r, mimePDF, false)
	if err != nil {
		return "", docharvest.WrapError(docharvest.EPARSE, err, "cannot extract PDF text: %v", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text := strings.TrimSpace(res.Body)
	if text == "" {
		return "", docharvest.Errorf(docharvest.EPARSE, "PDF contains no extractable text")
	}
	return text, nil
}

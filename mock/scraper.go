package mock

import (
	"context"
	"io"

	"github.com/fwojciec/docharvest"
)

var (
	_ docharvest.Scraper      = (*Scraper)(nil)
	_ docharvest.PDFConverter = (*PDFConverter)(nil)
	_ docharvest.ChunkCache   = (*ChunkCache)(nil)
)

// Scraper is a mock implementation of docharvest.Scraper.
type Scraper struct {
	ScrapeFn func(ctx context.Context, src *docharvest.Source, sink docharvest.ChunkSink) *docharvest.ScrapingResult
}

func (s *Scraper) Scrape(ctx context.Context, src *docharvest.Source, sink docharvest.ChunkSink) *docharvest.ScrapingResult {
	return s.ScrapeFn(ctx, src, sink)
}

// PDFConverter is a mock implementation of docharvest.PDFConverter.
type PDFConverter struct {
	ConvertPDFFn func(ctx context.Context, r io.Reader) (string, error)
}

func (c *PDFConverter) ConvertPDF(ctx context.Context, r io.Reader) (string, error) {
	return c.ConvertPDFFn(ctx, r)
}

// ChunkCache is a mock implementation of docharvest.ChunkCache.
type ChunkCache struct {
	LoadFn   func(ctx context.Context) (map[string][]*docharvest.Chunk, error)
	SaveFn   func(ctx context.Context, source string, chunks []*docharvest.Chunk) error
	RemoveFn func(ctx context.Context, source string) error
	ClearFn  func(ctx context.Context) error
}

func (c *ChunkCache) Load(ctx context.Context) (map[string][]*docharvest.Chunk, error) {
	return c.LoadFn(ctx)
}

func (c *ChunkCache) Save(ctx context.Context, source string, chunks []*docharvest.Chunk) error {
	return c.SaveFn(ctx, source, chunks)
}

func (c *ChunkCache) Remove(ctx context.Context, source string) error {
	return c.RemoveFn(ctx, source)
}

func (c *ChunkCache) Clear(ctx context.Context) error {
	return c.ClearFn(ctx)
}

package docharvest

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Fragment size defaults shared by the scrapers.
const (
	DefaultMaxChunkSize = 1000
	DefaultMinChunkSize = 100
	DefaultChunkOverlap = 200

	// MinChunkLength is the content floor a fragment should meet once past
	// the optimizer. Diagnostics report fragments below it.
	MinChunkLength = 100
)

// Fragment categories.
const (
	CategoryDocumentation = "documentation"
	CategoryReadme        = "readme"
	CategoryWebsite       = "website"
	CategoryFile          = "file"
	CategoryCodeComments  = "code-comments"
	CategoryCode          = "code"
)

// chunkNamespace seeds deterministic fragment IDs.
var chunkNamespace = uuid.MustParse("8f1d4c2e-5b7a-4e39-9d0c-3a6b2f8e1c47")

// Chunk is a bounded piece of document text, the unit of embedding and retrieval.
type Chunk struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Title     string         `json:"title"`
	URL       string         `json:"url"`
	Source    string         `json:"source"`
	Category  string         `json:"category"`
	CreatedAt time.Time      `json:"createdAt"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Validate returns an error if the chunk contains invalid fields.
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return Errorf(EINVALID, "chunk ID required")
	}
	if c.Source == "" {
		return Errorf(EINVALID, "chunk source required")
	}
	if c.Content == "" {
		return Errorf(EINVALID, "chunk content required")
	}
	return nil
}

// NewChunk builds a fragment with a deterministic ID derived from where it
// came from, so re-ingesting the same content upserts instead of duplicating.
func NewChunk(source, category, title, url string, ordinal int, content string) *Chunk {
	return &Chunk{
		ID:        ChunkID(source, url, ordinal, content),
		Content:   content,
		Title:     title,
		URL:       url,
		Source:    source,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}
}

// ChunkID returns the deterministic ID for a fragment.
func ChunkID(source, url string, ordinal int, content string) string {
	name := source + "\x00" + url + "\x00" + strconv.Itoa(ordinal) + "\x00" + ContentHash(content)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}

// ContentHash computes a short hex digest of content.
func ContentHash(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// ChunkSink receives fragments as a scraper produces them.
type ChunkSink func(ctx context.Context, chunks []*Chunk) error

// ScrapingStats summarizes a scrape.
type ScrapingStats struct {
	TotalChunks  int           `json:"totalChunks"`
	TotalPages   int           `json:"totalPages"`
	Duration     time.Duration `json:"duration"`
	StoredChunks int           `json:"storedChunks,omitempty"`
	FailedChunks int           `json:"failedChunks,omitempty"`
}

// ScrapingResult is the outcome of a scrape. Scrapers report failures here
// rather than returning an error so one broken source never aborts a batch.
type ScrapingResult struct {
	Success bool          `json:"success"`
	Chunks  []*Chunk      `json:"chunks,omitempty"`
	Err     error         `json:"-"`
	Message string        `json:"message,omitempty"`
	Stats   ScrapingStats `json:"stats"`
}

// FailedResult builds an unsuccessful result for err.
func FailedResult(err error, began time.Time) *ScrapingResult {
	return &ScrapingResult{
		Success: false,
		Err:     err,
		Message: ErrorMessage(err),
		Stats:   ScrapingStats{Duration: time.Since(began)},
	}
}

// Scraper turns a source into fragments.
//
// When sink is nil the fragments are returned in the result. Otherwise they
// are delivered to sink in batches as they are produced and the result only
// carries stats.
type Scraper interface {
	Scrape(ctx context.Context, src *Source, sink ChunkSink) *ScrapingResult
}

// ChunkCollector accumulates fragments delivered to its Sink.
// It is used by scrapers to share one code path for streamed and collected output.
type ChunkCollector struct {
	Chunks []*Chunk
	next   ChunkSink
}

// NewChunkCollector returns a collector that forwards to next, or keeps the
// fragments itself when next is nil.
func NewChunkCollector(next ChunkSink) *ChunkCollector {
	return &ChunkCollector{next: next}
}

// Sink delivers a batch of fragments.
func (c *ChunkCollector) Sink(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if c.next != nil {
		return c.next(ctx, chunks)
	}
	c.Chunks = append(c.Chunks, chunks...)
	return nil
}

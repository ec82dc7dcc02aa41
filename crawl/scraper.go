// Package crawl implements the website scraper. A site is read through a
// managed crawl service when one is configured, falling back to fetching
// and parsing pages directly.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fwojciec/docharvest"
)

// Scraper defaults.
const (
	DefaultPollInterval = 3 * time.Second
	DefaultPollTimeout  = 5 * time.Minute
	DefaultBatchSize    = 50
	DefaultMaxChunks    = 1000
	DefaultMaxPages     = 50
	DefaultMaxDepth     = 1
	DefaultDomainRate   = 2.0

	frontierExpectedURLs      = 10000
	frontierFalsePositiveRate = 0.01
)

var _ docharvest.Scraper = (*Scraper)(nil)

// errCeiling stops a crawl once the fragment ceiling is reached.
var errCeiling = errors.New("fragment ceiling reached")

// Scraper turns website sources into fragments.
type Scraper struct {
	// Crawls is the managed crawl service. Nil selects direct fetching.
	Crawls docharvest.CrawlService

	Sitemaps   docharvest.SitemapService
	Fetcher    docharvest.Fetcher
	Content    docharvest.ContentSelector
	Extractors []docharvest.Extractor
	Converter  docharvest.Converter
	Links      docharvest.LinkSelector
	Limiter    docharvest.DomainLimiter

	Retry docharvest.RetryPolicy
	Split docharvest.SplitOptions

	PollInterval time.Duration
	PollTimeout  time.Duration

	// BatchSize is the number of paragraphs split per batch.
	BatchSize int

	// MaxChunks is the per-site fragment ceiling.
	MaxChunks int

	Logger *slog.Logger
}

// NewScraper returns a Scraper with default tuning. Collaborators are set
// by the caller.
func NewScraper() *Scraper {
	return &Scraper{
		Retry:        docharvest.DefaultRetryPolicy(),
		Split:        docharvest.DefaultSplitOptions(),
		PollInterval: DefaultPollInterval,
		PollTimeout:  DefaultPollTimeout,
		BatchSize:    DefaultBatchSize,
		MaxChunks:    DefaultMaxChunks,
		Limiter:      NewDomainLimiter(DefaultDomainRate),
	}
}

// Scrape reads a website source. When sink is nil, fragments are returned
// in the result.
func (s *Scraper) Scrape(ctx context.Context, src *docharvest.Source, sink docharvest.ChunkSink) *docharvest.ScrapingResult {
	began := time.Now()
	if err := src.Validate(); err != nil {
		return docharvest.FailedResult(err, began)
	}
	if src.Type != docharvest.SourceWebsite {
		return docharvest.FailedResult(docharvest.Errorf(docharvest.EINVALID, "source %q is not a website", src.Name), began)
	}

	run := &siteRun{
		Scraper:   s,
		src:       src,
		collector: docharvest.NewChunkCollector(sink),
		seen:      make(map[string]bool),
		log:       s.logger().With("source", src.Name),
	}

	var err error
	if s.Crawls != nil {
		err = run.managed(ctx)
		if err != nil && run.chunks == 0 && ctx.Err() == nil {
			run.log.Warn("managed crawl failed, fetching directly", "error", err)
			err = run.direct(ctx)
		} else if err == nil && run.chunks == 0 {
			run.log.Info("managed crawl yielded no content, fetching directly")
			err = run.direct(ctx)
		}
	} else {
		err = run.direct(ctx)
	}

	if errors.Is(err, errCeiling) {
		err = nil
	}
	if err != nil && run.chunks == 0 {
		res := docharvest.FailedResult(err, began)
		res.Stats.TotalPages = run.pages
		return res
	}
	return run.result(began)
}

func (s *Scraper) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *Scraper) batchSize() int {
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	return DefaultBatchSize
}

func (s *Scraper) maxChunks() int {
	if s.MaxChunks > 0 {
		return s.MaxChunks
	}
	return DefaultMaxChunks
}

// siteRun holds the state of one Scrape call.
type siteRun struct {
	*Scraper
	src       *docharvest.Source
	collector *docharvest.ChunkCollector
	log       *slog.Logger

	// seen holds page URLs already turned into fragments.
	seen      map[string]bool
	pages     int
	chunks    int
	failed    int
	lastErr   error
	truncated bool
}

func (r *siteRun) maxPages() int {
	if r.src.MaxPages > 0 {
		return r.src.MaxPages
	}
	return DefaultMaxPages
}

func (r *siteRun) maxDepth() int {
	if r.src.MaxDepth > 0 {
		return r.src.MaxDepth
	}
	return DefaultMaxDepth
}

// addPage splits a page's Markdown into fragments and delivers them in
// paragraph batches. Returns errCeiling once MaxChunks is reached.
func (r *siteRun) addPage(ctx context.Context, pageURL, title, markdown string) error {
	if r.seen[pageURL] {
		return nil
	}
	paragraphs := docharvest.SplitParagraphs(markdown)
	if len(paragraphs) == 0 {
		return nil
	}
	r.seen[pageURL] = true
	r.pages++
	if title == "" {
		title = pageURL
	}

	ordinal := 0
	size := r.batchSize()
	for start := 0; start < len(paragraphs); start += size {
		end := min(start+size, len(paragraphs))
		texts := r.Split.Split(strings.Join(paragraphs[start:end], "\n\n"))

		batch := make([]*docharvest.Chunk, 0, len(texts))
		for _, text := range texts {
			if r.chunks+len(batch) >= r.maxChunks() {
				r.truncated = true
				break
			}
			batch = append(batch, docharvest.NewChunk(r.src.Name, docharvest.CategoryWebsite, title, pageURL, ordinal, text))
			ordinal++
		}
		if err := r.collector.Sink(ctx, batch); err != nil {
			return err
		}
		r.chunks += len(batch)
		if r.truncated {
			return errCeiling
		}
	}
	return nil
}

func (r *siteRun) result(began time.Time) *docharvest.ScrapingResult {
	msg := fmt.Sprintf("%d fragments from %d pages", r.chunks, r.pages)
	if r.failed > 0 {
		msg += fmt.Sprintf(", %d pages failed", r.failed)
	}
	if r.truncated {
		msg += fmt.Sprintf("; stopped at the %d fragment ceiling, remaining content discarded", r.maxChunks())
	}
	if r.chunks == 0 {
		msg = "no content extracted"
	}
	return &docharvest.ScrapingResult{
		Success: true,
		Chunks:  r.collector.Chunks,
		Message: msg,
		Stats: docharvest.ScrapingStats{
			TotalChunks: r.chunks,
			TotalPages:  r.pages,
			Duration:    time.Since(began),
		},
	}
}

// Package ingest streams scraper output into a vector index in bounded,
// paced batches.
package ingest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fwojciec/docharvest"
)

// Processor defaults.
const (
	DefaultBatchSize = 100
	DefaultInterval  = 2 * time.Second
)

// Stats are the running totals of a Processor.
type Stats struct {
	Received   int `json:"received"`
	Vectorized int `json:"vectorized"`
	Failed     int `json:"failed"`
	Batches    int `json:"batches"`
}

// Processor buffers fragments delivered by a scraper and stores them in
// batches of BatchSize. Consecutive flushes are at least Interval apart.
type Processor struct {
	index     docharvest.ChunkIndex
	batchSize int
	pace      *rate.Limiter
	logger    *slog.Logger

	// flushMu serializes flushes; mu guards the buffer and totals.
	flushMu sync.Mutex
	mu      sync.Mutex
	buf     []*docharvest.Chunk
	stats   Stats
}

// Option configures a Processor.
type Option func(*Processor)

// WithBatchSize sets the flush threshold.
func WithBatchSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithInterval sets the minimum pause between flushes. Zero disables pacing.
func WithInterval(d time.Duration) Option {
	return func(p *Processor) {
		if d <= 0 {
			p.pace = rate.NewLimiter(rate.Inf, 1)
			return
		}
		p.pace = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProcessor returns a Processor storing into index.
func NewProcessor(index docharvest.ChunkIndex, opts ...Option) *Processor {
	p := &Processor{
		index:     index,
		batchSize: DefaultBatchSize,
		pace:      rate.NewLimiter(rate.Every(DefaultInterval), 1),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Sink accepts fragments from a scraper. Full batches are flushed before it
// returns, so a scraper is held back while the index catches up.
func (p *Processor) Sink(ctx context.Context, chunks []*docharvest.Chunk) error {
	p.mu.Lock()
	p.buf = append(p.buf, chunks...)
	p.stats.Received += len(chunks)
	p.mu.Unlock()

	for {
		batch := p.take(false)
		if batch == nil {
			return nil
		}
		if err := p.flush(ctx, batch); err != nil {
			return err
		}
	}
}

// Finish flushes whatever remains in the buffer. If a flush fails, the
// rest of the buffer is dropped and counted as failed.
func (p *Processor) Finish(ctx context.Context) error {
	for {
		batch := p.take(true)
		if batch == nil {
			return nil
		}
		if err := p.flush(ctx, batch); err != nil {
			p.discard()
			return err
		}
	}
}

func (p *Processor) discard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Failed += len(p.buf)
	p.buf = nil
}

// take removes the next batch from the buffer: a full batch, or when
// partial is set, whatever is left. Returns nil when there is nothing to take.
func (p *Processor) take(partial bool) []*docharvest.Chunk {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := min(p.batchSize, len(p.buf))
	if n == 0 || (n < p.batchSize && !partial) {
		return nil
	}
	batch := p.buf[:n:n]
	p.buf = p.buf[n:]
	if len(p.buf) == 0 {
		p.buf = nil
	}
	return batch
}

func (p *Processor) flush(ctx context.Context, batch []*docharvest.Chunk) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	if err := p.pace.Wait(ctx); err != nil {
		p.count(0, len(batch))
		return err
	}

	res, err := p.index.StoreDocuments(ctx, batch)
	failed := res.Failed
	if err != nil {
		failed = len(batch) - res.Stored
	}
	p.count(res.Stored, failed)
	p.logger.Debug("batch stored", "stored", res.Stored, "failed", failed)
	return err
}

func (p *Processor) count(stored, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Vectorized += stored
	p.stats.Failed += failed
	p.stats.Batches++
}

// Stats returns the running totals.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Run scrapes src into the index and drains the buffer. The index is
// closed when Run returns, whatever the outcome.
func (p *Processor) Run(ctx context.Context, scraper docharvest.Scraper, src *docharvest.Source) (res *docharvest.ScrapingResult) {
	began := time.Now()
	defer func() {
		if err := p.index.Close(); err != nil {
			p.logger.Warn("closing index failed", "error", err)
		}
	}()

	res = scraper.Scrape(ctx, src, p.Sink)
	if err := p.Finish(ctx); err != nil && res.Success {
		res = docharvest.FailedResult(err, began)
	}

	st := p.Stats()
	res.Stats.TotalChunks = st.Received
	res.Stats.StoredChunks = st.Vectorized
	res.Stats.FailedChunks = st.Failed
	res.Stats.Duration = time.Since(began)
	return res
}

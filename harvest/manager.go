// Package harvest coordinates scrapers, the fragment cache and the
// optimizer behind a registry of named sources.
package harvest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/docharvest"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultConcurrency is the number of sources fetched at once.
const DefaultConcurrency = 1

// DirectoryScraper reads a local directory tree as one source.
type DirectoryScraper interface {
	ScrapeDirectory(ctx context.Context, dir, name string, sink docharvest.ChunkSink) *docharvest.ScrapingResult
}

// FetchResult pairs a source name with the outcome of its fetch.
type FetchResult struct {
	Source string
	Result *docharvest.ScrapingResult
}

// Manager keeps the fragments of every source in memory and on disk.
// Fetches of the same source name are coalesced.
type Manager struct {
	Cache    docharvest.ChunkCache
	Scrapers map[docharvest.SourceType]docharvest.Scraper

	// Directories backs AddLocalDirectory.
	Directories DirectoryScraper

	// Optimize runs the optimizer over fetched fragments before caching.
	Optimize        bool
	OptimizeOptions docharvest.OptimizeOptions

	Concurrency int
	Logger      *slog.Logger

	group singleflight.Group

	mu      sync.RWMutex
	sources []*docharvest.Source
	chunks  map[string][]*docharvest.Chunk
}

// NewManager returns a Manager over the given source registry.
func NewManager(cache docharvest.ChunkCache, sources []*docharvest.Source) *Manager {
	return &Manager{
		Cache:           cache,
		Scrapers:        make(map[docharvest.SourceType]docharvest.Scraper),
		Optimize:        true,
		OptimizeOptions: docharvest.DefaultOptimizeOptions(),
		Concurrency:     DefaultConcurrency,
		sources:         slices.Clone(sources),
		chunks:          make(map[string][]*docharvest.Chunk),
	}
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Initialize loads cached fragments into memory.
func (m *Manager) Initialize(ctx context.Context) error {
	cached, err := m.Cache.Load(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.chunks = cached
	m.mu.Unlock()
	m.logger().Debug("cache loaded", "sources", len(cached))
	return nil
}

// Sources returns the source registry.
func (m *Manager) Sources() []*docharvest.Source {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.sources)
}

// Source returns the registered source with the given name.
func (m *Manager) Source(name string) (*docharvest.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sources {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, docharvest.Errorf(docharvest.ENOTFOUND, "source %q not found", name)
}

// FetchSingleSource scrapes a registered source and replaces its cached
// fragments on success. A failed scrape leaves the cache untouched.
func (m *Manager) FetchSingleSource(ctx context.Context, name string) (*docharvest.ScrapingResult, error) {
	src, err := m.Source(name)
	if err != nil {
		return nil, err
	}
	return m.fetch(ctx, src)
}

// FetchAllSources scrapes every enabled source. One source failing never
// stops the others; the error is reserved for cancellation.
func (m *Manager) FetchAllSources(ctx context.Context) ([]FetchResult, error) {
	var enabled []*docharvest.Source
	for _, s := range m.Sources() {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}

	results := make([]FetchResult, len(enabled))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(m.Concurrency, 1))
	for i, src := range enabled {
		g.Go(func() error {
			res, err := m.fetch(gctx, src)
			if err != nil {
				res = docharvest.FailedResult(err, time.Now())
			}
			results[i] = FetchResult{Source: src.Name, Result: res}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (m *Manager) fetch(ctx context.Context, src *docharvest.Source) (*docharvest.ScrapingResult, error) {
	v, err, shared := m.group.Do(src.Name, func() (any, error) {
		scraper, ok := m.Scrapers[src.Type]
		if !ok {
			return nil, docharvest.Errorf(docharvest.ECONFIG, "no scraper configured for %s sources", src.Type)
		}
		res := scraper.Scrape(ctx, src, nil)
		if err := m.store(ctx, src.Name, res); err != nil {
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.logger().Debug("fetch coalesced", "source", src.Name)
	}
	return v.(*docharvest.ScrapingResult), nil
}

// store optimizes and persists the fragments of a successful scrape.
func (m *Manager) store(ctx context.Context, name string, res *docharvest.ScrapingResult) error {
	log := m.logger().With("source", name)
	if !res.Success {
		log.Warn("fetch failed, keeping cached fragments", "error", res.Message)
		return nil
	}

	chunks := res.Chunks
	if m.Optimize {
		before := len(chunks)
		chunks = docharvest.Optimize(chunks, m.OptimizeOptions)
		log.Debug("fragments optimized", "before", before, "after", len(chunks))
	}
	if err := m.Cache.Save(ctx, name, chunks); err != nil {
		return err
	}

	m.mu.Lock()
	m.chunks[name] = chunks
	m.mu.Unlock()

	res.Chunks = chunks
	res.Stats.TotalChunks = len(chunks)
	log.Info("fetched", "fragments", len(chunks), "duration", res.Stats.Duration)
	return nil
}

// AddLocalDirectory reads a directory tree into the cache as source name.
func (m *Manager) AddLocalDirectory(ctx context.Context, dir, name string) (*docharvest.ScrapingResult, error) {
	if m.Directories == nil {
		return nil, docharvest.Errorf(docharvest.ECONFIG, "no directory scraper configured")
	}
	v, err, _ := m.group.Do(name, func() (any, error) {
		res := m.Directories.ScrapeDirectory(ctx, dir, name, nil)
		if err := m.store(ctx, name, res); err != nil {
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*docharvest.ScrapingResult), nil
}

// AddLocalFile reads a single file into the cache as source name. An empty
// fileType infers the kind from the extension.
func (m *Manager) AddLocalFile(ctx context.Context, path, name, fileType string) (*docharvest.ScrapingResult, error) {
	src := &docharvest.Source{
		Name:     name,
		Type:     docharvest.SourceFile,
		FilePath: path,
		FileType: fileType,
		Enabled:  true,
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	return m.fetch(ctx, src)
}

// ClearCache removes every cached fragment from disk and memory.
func (m *Manager) ClearCache(ctx context.Context) error {
	if err := m.Cache.Clear(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.chunks = make(map[string][]*docharvest.Chunk)
	m.mu.Unlock()
	return nil
}

// OptimizeAll re-runs the optimizer over every cached source and persists
// sources that changed.
func (m *Manager) OptimizeAll(ctx context.Context) (before, after int, err error) {
	m.mu.RLock()
	names := make([]string, 0, len(m.chunks))
	for name := range m.chunks {
		names = append(names, name)
	}
	m.mu.RUnlock()
	slices.Sort(names)

	for _, name := range names {
		chunks := m.ChunksFor(name)
		optimized := docharvest.Optimize(chunks, m.OptimizeOptions)
		before += len(chunks)
		after += len(optimized)
		if len(optimized) == len(chunks) {
			continue
		}
		if err := m.Cache.Save(ctx, name, optimized); err != nil {
			return before, after, err
		}
		m.mu.Lock()
		m.chunks[name] = optimized
		m.mu.Unlock()
	}
	return before, after, nil
}

// Chunks returns every fragment in memory, ordered by source name.
func (m *Manager) Chunks() []*docharvest.Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.chunks))
	for name := range m.chunks {
		names = append(names, name)
	}
	slices.Sort(names)

	var all []*docharvest.Chunk
	for _, name := range names {
		all = append(all, m.chunks[name]...)
	}
	return all
}

// ChunksFor returns the fragments of one source.
func (m *Manager) ChunksFor(name string) []*docharvest.Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.chunks[name])
}

// CacheStats summarizes the fragments in memory.
type CacheStats struct {
	Sources    int            `json:"sources"`
	Chunks     int            `json:"chunks"`
	Bytes      int            `json:"bytes"`
	BySource   map[string]int `json:"bySource"`
	ByCategory map[string]int `json:"byCategory"`
}

// CacheStats returns fragment counts and content size.
func (m *Manager) CacheStats() CacheStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := CacheStats{
		BySource:   make(map[string]int, len(m.chunks)),
		ByCategory: make(map[string]int),
	}
	for name, chunks := range m.chunks {
		st.Sources++
		st.BySource[name] = len(chunks)
		for _, c := range chunks {
			st.Chunks++
			st.Bytes += len(c.Content)
			st.ByCategory[c.Category]++
		}
	}
	return st
}

// Diagnostic statuses.
const (
	StatusOK      = "ok"
	StatusWarning = "warning"
	StatusError   = "error"
)

// ErrorThreshold is the issue count at which diagnostics report an error.
const ErrorThreshold = 5

// Diagnostics describes the health of the fragment cache.
type Diagnostics struct {
	Status       string         `json:"status"`
	TotalChunks  int            `json:"totalChunks"`
	BySource     map[string]int `json:"bySource"`
	ByCategory   map[string]int `json:"byCategory"`
	EmptySources []string       `json:"emptySources,omitempty"`
	ShortChunks  int            `json:"shortChunks"`
	Issues       []string       `json:"issues,omitempty"`
}

// RunDiagnostics checks the cache for empty enabled sources and fragments
// shorter than docharvest.MinChunkLength. The status is ok without issues,
// a warning below ErrorThreshold issues, and an error at the threshold or
// when sources are configured but no fragments exist.
func (m *Manager) RunDiagnostics() *Diagnostics {
	st := m.CacheStats()
	d := &Diagnostics{
		TotalChunks: st.Chunks,
		BySource:    st.BySource,
		ByCategory:  st.ByCategory,
	}

	for _, src := range m.Sources() {
		if src.Enabled && st.BySource[src.Name] == 0 {
			d.EmptySources = append(d.EmptySources, src.Name)
			d.Issues = append(d.Issues, fmt.Sprintf("source %q has no fragments", src.Name))
		}
	}

	m.mu.RLock()
	names := make([]string, 0, len(m.chunks))
	for name := range m.chunks {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		short := 0
		for _, c := range m.chunks[name] {
			if len(strings.TrimSpace(c.Content)) < docharvest.MinChunkLength {
				short++
			}
		}
		if short > 0 {
			d.ShortChunks += short
			d.Issues = append(d.Issues, fmt.Sprintf("source %q has %d fragments shorter than %d characters", name, short, docharvest.MinChunkLength))
		}
	}
	m.mu.RUnlock()

	switch {
	case d.TotalChunks == 0 && len(m.Sources()) > 0:
		d.Status = StatusError
		d.Issues = append(d.Issues, "no fragments cached")
	case len(d.Issues) == 0:
		d.Status = StatusOK
	case len(d.Issues) < ErrorThreshold:
		d.Status = StatusWarning
	default:
		d.Status = StatusError
	}
	return d
}

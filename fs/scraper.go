package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fwojciec/docharvest"
	"golang.org/x/time/rate"
)

// Scraper defaults.
const (
	DefaultMaxFilesPerDir = 100
	DefaultMaxSubdirs     = 20
	DefaultMaxFileSize    = 5 << 20
	DefaultFileBatchSize  = 5
	DefaultYieldInterval  = 100 * time.Millisecond
)

var _ docharvest.Scraper = (*Scraper)(nil)

// Scraper turns local files into fragments.
type Scraper struct {
	// PDF extracts text from PDF files. Nil makes PDF files fail.
	PDF docharvest.PDFConverter

	Split docharvest.SplitOptions

	MaxFilesPerDir int
	MaxSubdirs     int
	MaxFileSize    int64
	FileBatchSize  int
	Recursive      bool

	// Yield paces file batches and subdirectories.
	Yield *rate.Limiter

	// Ignore holds doublestar globs matched against paths relative to the
	// scraped directory.
	Ignore []string

	Logger *slog.Logger
}

// NewScraper returns a recursive Scraper with default caps.
func NewScraper(pdf docharvest.PDFConverter) *Scraper {
	return &Scraper{
		PDF:            pdf,
		Split:          docharvest.DefaultSplitOptions(),
		MaxFilesPerDir: DefaultMaxFilesPerDir,
		MaxSubdirs:     DefaultMaxSubdirs,
		MaxFileSize:    DefaultMaxFileSize,
		FileBatchSize:  DefaultFileBatchSize,
		Recursive:      true,
		Yield:          rate.NewLimiter(rate.Every(DefaultYieldInterval), 1),
		Ignore:         docharvest.DefaultIgnorePatterns,
	}
}

// Scrape reads a single file source.
func (s *Scraper) Scrape(ctx context.Context, src *docharvest.Source, sink docharvest.ChunkSink) *docharvest.ScrapingResult {
	began := time.Now()
	if err := src.Validate(); err != nil {
		return docharvest.FailedResult(err, began)
	}
	if src.Type != docharvest.SourceFile {
		return docharvest.FailedResult(docharvest.Errorf(docharvest.EINVALID, "source %q is not a file", src.Name), began)
	}

	info, err := os.Stat(src.FilePath)
	if err != nil {
		return docharvest.FailedResult(statError(err, src.FilePath), began)
	}
	if info.IsDir() {
		return docharvest.FailedResult(docharvest.Errorf(docharvest.EINVALID, "%s is a directory", src.FilePath), began)
	}
	if info.Size() > s.maxFileSize() {
		return docharvest.FailedResult(docharvest.Errorf(docharvest.EINVALID, "%s exceeds the %d byte file size limit", src.FilePath, s.maxFileSize()), began)
	}
	kind := docharvest.DetectFileKind(src.FilePath, src.FileType)
	if kind == docharvest.FileUnknown {
		return docharvest.FailedResult(docharvest.Errorf(docharvest.EINVALID, "unsupported file type %q", filepath.Ext(src.FilePath)), began)
	}

	chunks, err := s.fileChunks(ctx, src.Name, src.FilePath, kind)
	if err != nil {
		return docharvest.FailedResult(err, began)
	}
	collector := docharvest.NewChunkCollector(sink)
	if err := collector.Sink(ctx, chunks); err != nil {
		return docharvest.FailedResult(err, began)
	}

	msg := fmt.Sprintf("%d fragments from %s", len(chunks), filepath.Base(src.FilePath))
	if len(chunks) == 0 {
		msg = "no content extracted"
	}
	return &docharvest.ScrapingResult{
		Success: true,
		Chunks:  collector.Chunks,
		Message: msg,
		Stats: docharvest.ScrapingStats{
			TotalChunks: len(chunks),
			TotalPages:  1,
			Duration:    time.Since(began),
		},
	}
}

// ScrapeDirectory reads every supported file under dir as the source name.
// Unreadable or oversized files are skipped. When sink is nil, fragments are
// returned in the result.
func (s *Scraper) ScrapeDirectory(ctx context.Context, dir, name string, sink docharvest.ChunkSink) *docharvest.ScrapingResult {
	began := time.Now()
	if strings.TrimSpace(name) == "" {
		return docharvest.FailedResult(docharvest.Errorf(docharvest.EINVALID, "source name required"), began)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return docharvest.FailedResult(statError(err, dir), began)
	}
	if !info.IsDir() {
		return docharvest.FailedResult(docharvest.Errorf(docharvest.EINVALID, "%s is not a directory", dir), began)
	}

	w := &dirWalk{
		Scraper:   s,
		root:      dir,
		name:      name,
		collector: docharvest.NewChunkCollector(sink),
		log:       s.logger().With("source", name, "dir", dir),
	}
	if err := w.walk(ctx, dir); err != nil {
		res := docharvest.FailedResult(err, began)
		res.Stats.TotalPages = w.files
		res.Stats.TotalChunks = w.chunks
		return res
	}

	msg := fmt.Sprintf("%d fragments from %d files", w.chunks, w.files)
	if w.skipped > 0 {
		msg += fmt.Sprintf(", %d files skipped", w.skipped)
	}
	if w.chunks == 0 {
		msg = "no content extracted"
	}
	return &docharvest.ScrapingResult{
		Success: true,
		Chunks:  w.collector.Chunks,
		Message: msg,
		Stats: docharvest.ScrapingStats{
			TotalChunks: w.chunks,
			TotalPages:  w.files,
			Duration:    time.Since(began),
		},
	}
}

// fileChunks reads path and splits it by kind. Markdown is split by heading
// sections first.
func (s *Scraper) fileChunks(ctx context.Context, source, path string, kind docharvest.FileKind) ([]*docharvest.Chunk, error) {
	content, err := s.readFile(ctx, path, kind)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	u := FileURL(path)
	if kind == docharvest.FileMarkdown {
		return docharvest.SectionChunks(source, docharvest.CategoryFile, title, u, content, docharvest.MinSectionLength, s.Split), nil
	}

	var chunks []*docharvest.Chunk
	for i, text := range s.Split.Split(content) {
		chunks = append(chunks, docharvest.NewChunk(source, docharvest.CategoryFile, title, u, i, text))
	}
	return chunks, nil
}

func (s *Scraper) readFile(ctx context.Context, path string, kind docharvest.FileKind) (string, error) {
	if kind != docharvest.FilePDF {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", statError(err, path)
		}
		return string(data), nil
	}

	if s.PDF == nil {
		return "", docharvest.Errorf(docharvest.ECONFIG, "no PDF converter configured for %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", statError(err, path)
	}
	defer f.Close()
	return s.PDF.ConvertPDF(ctx, f)
}

func (s *Scraper) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *Scraper) maxFileSize() int64 {
	if s.MaxFileSize > 0 {
		return s.MaxFileSize
	}
	return DefaultMaxFileSize
}

func (s *Scraper) maxFiles() int {
	if s.MaxFilesPerDir > 0 {
		return s.MaxFilesPerDir
	}
	return DefaultMaxFilesPerDir
}

func (s *Scraper) maxSubdirs() int {
	if s.MaxSubdirs > 0 {
		return s.MaxSubdirs
	}
	return DefaultMaxSubdirs
}

func (s *Scraper) batchSize() int {
	if s.FileBatchSize > 0 {
		return s.FileBatchSize
	}
	return DefaultFileBatchSize
}

func (s *Scraper) yield(ctx context.Context) error {
	if s.Yield == nil {
		return ctx.Err()
	}
	return s.Yield.Wait(ctx)
}

// dirWalk holds the state of one ScrapeDirectory call.
type dirWalk struct {
	*Scraper
	root      string
	name      string
	collector *docharvest.ChunkCollector
	log       *slog.Logger

	files   int
	skipped int
	chunks  int
}

func (w *dirWalk) walk(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if dir == w.root {
			return statError(err, dir)
		}
		w.log.Warn("skipping directory", "dir", dir, "error", err)
		return nil
	}

	var files, subdirs []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		rel, err := filepath.Rel(w.root, path)
		if err != nil || docharvest.IsIgnored(rel, w.Ignore) {
			continue
		}
		switch {
		case e.IsDir():
			subdirs = append(subdirs, path)
		case e.Type().IsRegular() && docharvest.DetectFileKind(path, "") != docharvest.FileUnknown:
			files = append(files, path)
		}
	}
	sort.Strings(files)
	sort.Strings(subdirs)

	if len(files) > w.maxFiles() {
		w.log.Warn("file cap reached", "dir", dir, "files", len(files), "limit", w.maxFiles())
		w.skipped += len(files) - w.maxFiles()
		files = files[:w.maxFiles()]
	}

	size := w.batchSize()
	for start := 0; start < len(files); start += size {
		if start > 0 {
			if err := w.yield(ctx); err != nil {
				return err
			}
		}
		for _, path := range files[start:min(start+size, len(files))] {
			if err := w.file(ctx, path); err != nil {
				return err
			}
		}
	}

	if !w.Recursive {
		return nil
	}
	if len(subdirs) > w.maxSubdirs() {
		w.log.Warn("subdirectory cap reached", "dir", dir, "subdirs", len(subdirs), "limit", w.maxSubdirs())
		subdirs = subdirs[:w.maxSubdirs()]
	}
	for _, sub := range subdirs {
		if err := w.yield(ctx); err != nil {
			return err
		}
		if err := w.walk(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

// file scrapes one file. Only sink and cancellation errors stop the walk.
func (w *dirWalk) file(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		w.skipped++
		w.log.Warn("skipping file", "path", path, "error", err)
		return nil
	}
	if info.Size() > w.maxFileSize() {
		w.skipped++
		w.log.Warn("skipping oversized file", "path", path, "size", info.Size(), "limit", w.maxFileSize())
		return nil
	}

	chunks, err := w.fileChunks(ctx, w.name, path, docharvest.DetectFileKind(path, ""))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		w.skipped++
		w.log.Warn("skipping file", "path", path, "error", err)
		return nil
	}
	w.files++
	if err := w.collector.Sink(ctx, chunks); err != nil {
		return err
	}
	w.chunks += len(chunks)
	w.log.Debug("file read", "path", path, "fragments", len(chunks))
	return nil
}

func statError(err error, path string) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return docharvest.Errorf(docharvest.ENOTFOUND, "%s not found", path)
	case errors.Is(err, os.ErrPermission):
		return docharvest.Errorf(docharvest.EPERMISSION, "%s is not readable", path)
	}
	return docharvest.WrapError(docharvest.ESTORAGE, err, "cannot read %s", path)
}

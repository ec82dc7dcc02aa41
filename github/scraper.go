package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/fwojciec/docharvest"
	"golang.org/x/time/rate"
)

// Scraper defaults.
const (
	DefaultMaxDepth             = 3
	DefaultDirDelay             = 250 * time.Millisecond
	DefaultMaxImportantFileSize = 16 << 10
	DefaultMaxCodeFileSize      = 256 << 10
)

// BranchLadder is probed in order when the default branch is unknown.
var BranchLadder = []string{"main", "master", "develop", "trunk", "gh-pages"}

// DocDirs are the directories searched for documentation.
var DocDirs = []string{"docs", "doc", "documentation", "guides", "guide", "wiki", "examples", "tutorials"}

// SourceDirs are the directories of a core repository searched for code.
var SourceDirs = []string{"src", "lib", "pkg", "internal", "cmd", "contracts", "packages", "app"}

var _ docharvest.Scraper = (*Scraper)(nil)

// Scraper turns repository sources into fragments.
type Scraper struct {
	API API

	Retry docharvest.RetryPolicy
	Split docharvest.SplitOptions

	// MaxDepth bounds directory recursion below each documentation or
	// source directory.
	MaxDepth int

	// DirDelay separates directory listings.
	DirDelay *rate.Limiter

	// OnlyDirs replaces DocDirs when set.
	OnlyDirs []string

	// SkipCode disables code extraction for core repositories.
	SkipCode bool

	// CorePatterns select repositories whose source code is indexed
	// alongside their documentation. Patterns match the source URL.
	CorePatterns []*regexp.Regexp

	MinSectionLength     int
	MaxImportantFileSize int
	MaxCodeFileSize      int

	// Ignore holds doublestar globs matched against repository paths.
	Ignore []string

	Logger *slog.Logger
}

// NewScraper returns a Scraper with default tuning.
func NewScraper(api API) *Scraper {
	return &Scraper{
		API:                  api,
		Retry:                docharvest.DefaultRetryPolicy(),
		Split:                docharvest.DefaultSplitOptions(),
		MaxDepth:             DefaultMaxDepth,
		DirDelay:             rate.NewLimiter(rate.Every(DefaultDirDelay), 1),
		MinSectionLength:     docharvest.MinSectionLength,
		MaxImportantFileSize: DefaultMaxImportantFileSize,
		MaxCodeFileSize:      DefaultMaxCodeFileSize,
		Ignore:               docharvest.DefaultIgnorePatterns,
	}
}

// RateLimitStatus returns the API quota.
func (s *Scraper) RateLimitStatus(ctx context.Context) (*RateLimitStatus, error) {
	return s.API.RateLimit(ctx)
}

// Scrape reads a repository source: README first, then documentation
// directories, then root-level markdown, then code of core repositories.
func (s *Scraper) Scrape(ctx context.Context, src *docharvest.Source, sink docharvest.ChunkSink) *docharvest.ScrapingResult {
	began := time.Now()
	if err := src.Validate(); err != nil {
		return docharvest.FailedResult(err, began)
	}
	if src.Type != docharvest.SourceRepository {
		return docharvest.FailedResult(docharvest.Errorf(docharvest.EINVALID, "source %q is not a repository", src.Name), began)
	}
	repo, err := ParseRepoURL(src.URL)
	if err != nil {
		return docharvest.FailedResult(err, began)
	}
	if s.API == nil {
		return docharvest.FailedResult(docharvest.Errorf(docharvest.ECONFIG, "no GitHub client configured"), began)
	}

	run := &repoRun{
		Scraper:   s,
		src:       src,
		repo:      repo,
		collector: docharvest.NewChunkCollector(sink),
		covered:   make(map[string]bool),
		log:       s.logger().With("source", src.Name, "repo", repo.String()),
	}

	run.ref, err = run.resolveBranch(ctx)
	if err != nil {
		return docharvest.FailedResult(err, began)
	}
	if err := run.scrape(ctx); err != nil {
		res := docharvest.FailedResult(err, began)
		res.Stats.TotalChunks = run.chunks
		res.Stats.TotalPages = run.files
		return res
	}
	if run.chunks == 0 && run.lastErr != nil {
		return docharvest.FailedResult(run.lastErr, began)
	}

	msg := fmt.Sprintf("%d fragments from %d files of %s@%s", run.chunks, run.files, repo, run.ref)
	if run.failed > 0 {
		msg += fmt.Sprintf(", %d requests failed", run.failed)
	}
	if run.chunks == 0 {
		msg = "no content extracted"
	}
	return &docharvest.ScrapingResult{
		Success: true,
		Chunks:  run.collector.Chunks,
		Message: msg,
		Stats: docharvest.ScrapingStats{
			TotalChunks: run.chunks,
			TotalPages:  run.files,
			Duration:    time.Since(began),
		},
	}
}

func (s *Scraper) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *Scraper) isCore(rawURL string) bool {
	for _, re := range s.CorePatterns {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// repoRun holds the state of one Scrape call.
type repoRun struct {
	*Scraper
	src       *docharvest.Source
	repo      Repo
	ref       string
	collector *docharvest.ChunkCollector
	log       *slog.Logger

	// covered holds paths already turned into fragments.
	covered map[string]bool
	files   int
	chunks  int
	failed  int
	lastErr error
}

func (r *repoRun) maxDepth() int {
	if r.src.MaxDepth > 0 {
		return r.src.MaxDepth
	}
	if r.MaxDepth > 0 {
		return r.MaxDepth
	}
	return DefaultMaxDepth
}

// resolveBranch asks for the default branch and falls back to probing
// BranchLadder.
func (r *repoRun) resolveBranch(ctx context.Context) (string, error) {
	branch, err := docharvest.Retry(ctx, r.Retry, func(ctx context.Context) (string, error) {
		return r.API.DefaultBranch(ctx, r.repo)
	})
	if err == nil {
		return branch, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	r.log.Warn("default branch unavailable, probing", "error", err)

	for _, candidate := range BranchLadder {
		ok, probeErr := docharvest.Retry(ctx, r.Retry, func(ctx context.Context) (bool, error) {
			return r.API.BranchExists(ctx, r.repo, candidate)
		})
		if probeErr != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			err = probeErr
			continue
		}
		if ok {
			return candidate, nil
		}
	}
	return "", docharvest.WrapError(docharvest.ENOTFOUND, err, "no branch of %s could be resolved", r.repo)
}

func (r *repoRun) scrape(ctx context.Context) error {
	if err := r.readme(ctx); err != nil {
		return err
	}

	dirs := DocDirs
	if len(r.OnlyDirs) > 0 {
		dirs = r.OnlyDirs
	}
	for _, dir := range dirs {
		if err := r.walk(ctx, strings.Trim(dir, "/"), 1, r.docFile); err != nil {
			return err
		}
	}

	if err := r.rootMarkdown(ctx); err != nil {
		return err
	}

	if r.SkipCode || !r.isCore(r.src.URL) {
		return nil
	}
	r.log.Info("core repository, extracting code")
	for _, dir := range SourceDirs {
		if err := r.walk(ctx, dir, 1, r.codeFile); err != nil {
			return err
		}
	}
	return nil
}

// remoteErr records a failed request. Only cancellation stops the run.
func (r *repoRun) remoteErr(ctx context.Context, err error, msg string, args ...any) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if docharvest.ErrorCode(err) != docharvest.ENOTFOUND {
		r.failed++
		r.lastErr = err
		r.log.Warn(msg, append(args, "error", err)...)
	}
	return nil
}

func (r *repoRun) readme(ctx context.Context) error {
	f, err := docharvest.Retry(ctx, r.Retry, func(ctx context.Context) (*File, error) {
		return r.API.Readme(ctx, r.repo, r.ref)
	})
	if err != nil {
		return r.remoteErr(ctx, err, "README unavailable")
	}
	r.covered[f.Path] = true
	return r.deliver(ctx, r.markdownChunks(docharvest.CategoryReadme, f))
}

func (r *repoRun) rootMarkdown(ctx context.Context) error {
	entries, err := r.list(ctx, "")
	if err != nil {
		return r.remoteErr(ctx, err, "cannot list repository root")
	}
	for _, e := range entries {
		if e.Type != "file" || !isMarkdown(e.Path) || r.covered[e.Path] || r.ignored(e.Path) {
			continue
		}
		if err := r.docFile(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// walk visits dir depth-first, calling visit for every file.
func (r *repoRun) walk(ctx context.Context, dir string, depth int, visit func(context.Context, Entry) error) error {
	if r.ignored(dir) {
		return nil
	}
	entries, err := r.list(ctx, dir)
	if err != nil {
		return r.remoteErr(ctx, err, "cannot list directory", "dir", dir)
	}
	for _, e := range entries {
		if e.Type != "file" || r.covered[e.Path] || r.ignored(e.Path) {
			continue
		}
		if err := visit(ctx, e); err != nil {
			return err
		}
	}
	if depth >= r.maxDepth() {
		return nil
	}
	for _, e := range entries {
		if e.Type != "dir" {
			continue
		}
		if err := r.walk(ctx, e.Path, depth+1, visit); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoRun) list(ctx context.Context, dir string) ([]Entry, error) {
	if r.DirDelay != nil {
		if err := r.DirDelay.Wait(ctx); err != nil {
			return nil, err
		}
	}
	entries, err := docharvest.Retry(ctx, r.Retry, func(ctx context.Context) ([]Entry, error) {
		return r.API.ListDir(ctx, r.repo, dir, r.ref)
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Path, b.Path) })
	return entries, nil
}

func (r *repoRun) fetch(ctx context.Context, p string) (*File, error) {
	return docharvest.Retry(ctx, r.Retry, func(ctx context.Context) (*File, error) {
		return r.API.File(ctx, r.repo, p, r.ref)
	})
}

func (r *repoRun) docFile(ctx context.Context, e Entry) error {
	if !isMarkdown(e.Path) {
		return nil
	}
	f, err := r.fetch(ctx, e.Path)
	if err != nil {
		return r.remoteErr(ctx, err, "cannot read file", "path", e.Path)
	}
	r.covered[e.Path] = true
	return r.deliver(ctx, r.markdownChunks(docharvest.CategoryDocumentation, f))
}

func (r *repoRun) codeFile(ctx context.Context, e Entry) error {
	important := IsImportantFile(e.Path)
	if !important && !IsCodeFile(e.Path) {
		return nil
	}
	if !important && e.Size > r.MaxCodeFileSize && r.MaxCodeFileSize > 0 {
		return nil
	}
	f, err := r.fetch(ctx, e.Path)
	if err != nil {
		return r.remoteErr(ctx, err, "cannot read file", "path", e.Path)
	}
	r.covered[e.Path] = true
	u := r.fileURL(f)

	var chunks []*docharvest.Chunk
	if important {
		content := f.Content
		if limit := r.MaxImportantFileSize; limit > 0 && len(content) > limit {
			content = content[:limit]
		}
		for i, text := range r.Split.Split(content) {
			chunks = append(chunks, docharvest.NewChunk(r.src.Name, docharvest.CategoryCode, f.Path, u, i, text))
		}
		return r.deliver(ctx, chunks)
	}

	comments := ExtractComments(f.Path, f.Content)
	if len(comments) == 0 {
		return nil
	}
	for i, text := range r.Split.Split(strings.Join(comments, "\n\n")) {
		chunks = append(chunks, docharvest.NewChunk(r.src.Name, docharvest.CategoryCodeComments, f.Path, u, i, text))
	}
	return r.deliver(ctx, chunks)
}

func (r *repoRun) markdownChunks(category string, f *File) []*docharvest.Chunk {
	title := strings.TrimSuffix(path.Base(f.Path), path.Ext(f.Path))
	return docharvest.SectionChunks(r.src.Name, category, title, r.fileURL(f), f.Content, r.MinSectionLength, r.Split)
}

func (r *repoRun) fileURL(f *File) string {
	if f.HTMLURL != "" {
		return f.HTMLURL
	}
	return fmt.Sprintf("https://github.com/%s/blob/%s/%s", r.repo, r.ref, f.Path)
}

func (r *repoRun) deliver(ctx context.Context, chunks []*docharvest.Chunk) error {
	r.files++
	if err := r.collector.Sink(ctx, chunks); err != nil {
		return err
	}
	r.chunks += len(chunks)
	return nil
}

func (r *repoRun) ignored(p string) bool {
	return p != "" && docharvest.IsIgnored(p, r.Ignore)
}

func isMarkdown(p string) bool {
	return docharvest.DetectFileKind(p, "") == docharvest.FileMarkdown
}

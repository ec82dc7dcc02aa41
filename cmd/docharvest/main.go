package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/docharvest"
	"github.com/fwojciec/docharvest/crawl"
	"github.com/fwojciec/docharvest/docconv"
	"github.com/fwojciec/docharvest/featurehash"
	"github.com/fwojciec/docharvest/fs"
	"github.com/fwojciec/docharvest/gemini"
	"github.com/fwojciec/docharvest/github"
	"github.com/fwojciec/docharvest/goquery"
	"github.com/fwojciec/docharvest/harvest"
	"github.com/fwojciec/docharvest/htmltomarkdown"
	dhhttp "github.com/fwojciec/docharvest/http"
	"github.com/fwojciec/docharvest/index"
	"github.com/fwojciec/docharvest/postgres"
	"github.com/fwojciec/docharvest/readability"
	"github.com/fwojciec/docharvest/rod"
	dhslog "github.com/fwojciec/docharvest/slog"
	"github.com/fwojciec/docharvest/sqlite"
	"github.com/fwojciec/docharvest/trafilatura"
	"github.com/joho/godotenv"
	"google.golang.org/genai"
)

func main() {
	ctx := context.Background()

	m := NewMain()
	defer m.Close()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", docharvest.ErrorMessage(err))
		m.Close()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// EnvFiles are loaded into the environment before flags are parsed.
	// Missing files are skipped and set variables are never overridden.
	EnvFiles []string

	closers []io.Closer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		EnvFiles: []string{".env", filepath.Join(defaultHome(), ".env")},
	}
}

// Close releases everything opened while running a command.
func (m *Main) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		errs = append(errs, m.closers[i].Close())
	}
	m.closers = nil
	return errors.Join(errs...)
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := m.loadEnv(); err != nil {
		return err
	}

	cli := &CLI{}
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	parser, err := kong.New(cli,
		kong.Name("docharvest"),
		kong.Description("Harvest documentation into a searchable vector index"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return docharvest.Errorf(docharvest.EINVALID, "no command specified. Run 'docharvest --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	home := cli.Home
	if home == "" {
		home = defaultHome()
	}
	configPath := cli.ConfigFile
	if configPath == "" {
		configPath = filepath.Join(home, "config.toml")
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	deps.Config = cfg
	deps.Logger = newLogger(stderr, cli.Verbose)

	if err := m.wire(ctx, cmd, cli, home, deps); err != nil {
		return err
	}
	return kongCtx.Run(deps)
}

func (m *Main) loadEnv() error {
	for _, path := range m.EnvFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return docharvest.WrapError(docharvest.ECONFIG, err, "loading %s", path)
		}
	}
	return nil
}

// wire builds the services the selected command needs.
func (m *Main) wire(ctx context.Context, cmd string, cli *CLI, home string, deps *Dependencies) error {
	logger := deps.Logger
	cfg := deps.Config

	switch cmd {
	case "check-memory", "sources":
		return nil
	}

	if cmd == "github-status" || needsScrapers(cmd) {
		repos, err := m.repoScraper(ctx, cli, cfg, logger)
		if err != nil {
			return err
		}
		deps.Repos = repos
		deps.RateLimits = repos
	}
	if cmd == "github-status" {
		return nil
	}

	if needsScrapers(cmd) {
		website, err := m.websiteScraper(cli, cfg, logger)
		if err != nil {
			return err
		}
		files := fs.NewScraper(docconv.NewPDFConverter())
		files.Split = cfg.splitOptions()
		files.Logger = logger
		deps.Files = files

		deps.Scrapers = map[docharvest.SourceType]docharvest.Scraper{
			docharvest.SourceWebsite:    dhslog.NewLoggingScraper(website, logger),
			docharvest.SourceRepository: dhslog.NewLoggingScraper(deps.Repos, logger),
			docharvest.SourceFile:       dhslog.NewLoggingScraper(files, logger),
		}
	}

	if needsManager(cmd) {
		cacheDir := cli.CacheDir
		if cacheDir == "" {
			cacheDir = filepath.Join(home, "cache")
		}
		cache := fs.NewCacheStore(cacheDir)
		deps.Cache = cache

		manager := harvest.NewManager(cache, cfg.Sources)
		manager.Scrapers = deps.Scrapers
		if deps.Files != nil {
			manager.Directories = deps.Files
		}
		manager.Logger = logger
		if cfg.Concurrency > 0 {
			manager.Concurrency = cfg.Concurrency
		}
		if err := manager.Initialize(ctx); err != nil {
			return err
		}
		deps.Manager = manager
	}

	if cmd == "stats" && cli.Stats.Tokens {
		counter, err := gemini.NewTokenCounter(gemini.DefaultTokenizerModel)
		if err != nil {
			return err
		}
		deps.TokenCounter = counter
	}

	if needsIndex(cmd) {
		if err := os.MkdirAll(home, 0o755); err != nil {
			return docharvest.WrapError(docharvest.ESTORAGE, err, "creating %s", home)
		}
		deps.OpenIndex = func(ctx context.Context) (docharvest.ChunkIndex, error) {
			return openIndex(ctx, cli, cfg, home, logger)
		}
	}
	return nil
}

func needsScrapers(cmd string) bool {
	switch cmd {
	case "fetch", "add-file", "add-dir", "website", "github", "process":
		return true
	}
	return false
}

func needsManager(cmd string) bool {
	switch cmd {
	case "fetch", "clean", "diagnose", "stats", "add-file", "add-dir", "process":
		return true
	}
	return false
}

func needsIndex(cmd string) bool {
	switch cmd {
	case "website", "github", "process", "clear-vectors", "query":
		return true
	}
	return false
}

func (m *Main) websiteScraper(cli *CLI, cfg *Config, logger *slog.Logger) (*crawl.Scraper, error) {
	timeout := cfg.Crawl.Timeout.Duration
	if timeout <= 0 {
		timeout = dhhttp.DefaultFetchTimeout
	}

	var fetcher docharvest.Fetcher = dhhttp.NewFetcher(dhhttp.WithTimeout(timeout))
	if cli.RenderJS || cfg.Crawl.RenderJS {
		browser, err := rod.NewFetcher(rod.WithFetchTimeout(timeout))
		if err != nil {
			return nil, docharvest.WrapError(docharvest.ECONFIG, err, "Chrome or Chromium must be installed for --render-js")
		}
		fetcher = browser
	}
	fetcher = dhslog.NewLoggingFetcher(fetcher, logger)
	m.closers = append(m.closers, fetcher)

	registry := goquery.NewRegistry()

	s := crawl.NewScraper()
	s.Sitemaps = dhslog.NewLoggingSitemapService(dhhttp.NewSitemapService(nil), logger)
	s.Fetcher = fetcher
	s.Content = dhslog.NewLoggingContentSelector(registry, goquery.NewDetector(), logger)
	s.Links = registry
	s.Extractors = []docharvest.Extractor{trafilatura.NewExtractor(), readability.NewExtractor()}
	s.Converter = htmltomarkdown.NewConverter()
	s.Split = cfg.splitOptions()
	s.Logger = logger
	if cfg.Crawl.MaxChunks > 0 {
		s.MaxChunks = cfg.Crawl.MaxChunks
	}
	if cfg.Crawl.DomainRate > 0 {
		s.Limiter = crawl.NewDomainLimiter(cfg.Crawl.DomainRate)
	}
	if cli.CrawlKey != "" {
		client, err := dhhttp.NewCrawlClient(cli.CrawlURL, cli.CrawlKey, nil)
		if err != nil {
			return nil, err
		}
		s.Crawls = client
	}
	return s, nil
}

func (m *Main) repoScraper(ctx context.Context, cli *CLI, cfg *Config, logger *slog.Logger) (*github.Scraper, error) {
	patterns, err := cfg.corePatterns()
	if err != nil {
		return nil, err
	}
	s := github.NewScraper(github.NewClient(ctx, cli.GitHubToken))
	s.Split = cfg.splitOptions()
	s.CorePatterns = patterns
	s.Logger = logger
	if cfg.GitHub.MaxDepth > 0 {
		s.MaxDepth = cfg.GitHub.MaxDepth
	}
	return s, nil
}

// openIndex opens the vector store and embedder the flags select and
// ensures the index exists.
func openIndex(ctx context.Context, cli *CLI, cfg *Config, home string, logger *slog.Logger) (docharvest.ChunkIndex, error) {
	embedder, err := newEmbedder(ctx, cli)
	if err != nil {
		return nil, err
	}

	var store docharvest.VectorStore
	if cli.DatabaseURL != "" {
		db := postgres.NewDB(cli.DatabaseURL)
		if err := db.Open(ctx); err != nil {
			return nil, err
		}
		store = postgres.NewVectorStore(db)
	} else {
		path := cli.DB
		if path == "" {
			path = filepath.Join(home, "vectors.db")
		}
		db := sqlite.NewDB(path)
		if err := db.Open(); err != nil {
			return nil, docharvest.WrapError(docharvest.ESTORAGE, err, "opening vector database %q (set DOCHARVEST_DB to use another path)", path)
		}
		store = sqlite.NewVectorStore(db)
	}

	ix := index.NewIndex(
		dhslog.NewLoggingVectorStore(store, logger),
		dhslog.NewLoggingEmbedder(embedder, logger),
	)
	ix.Logger = logger
	if cfg.Index.Name != "" {
		ix.Spec.Name = cfg.Index.Name
	}
	if err := ix.Initialize(ctx); err != nil {
		_ = ix.Close()
		return nil, err
	}
	return ix, nil
}

func newEmbedder(ctx context.Context, cli *CLI) (docharvest.Embedder, error) {
	backend := cli.Embedder
	if backend == "auto" {
		backend = "featurehash"
		if cli.GeminiKey != "" {
			backend = "gemini"
		}
	}
	if backend == "featurehash" {
		return featurehash.NewEmbedder(docharvest.DefaultDimension), nil
	}

	if cli.GeminiKey == "" {
		return nil, docharvest.Errorf(docharvest.ECONFIG, "GEMINI_API_KEY not set. Get a key at https://aistudio.google.com/apikey")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cli.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, docharvest.WrapError(docharvest.ECONFIG, err, "connecting to Gemini API")
	}
	return gemini.NewEmbedder(client.Models), nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func defaultHome() string {
	if home := os.Getenv("DOCHARVEST_HOME"); home != "" {
		return home
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return ".docharvest"
	}
	return filepath.Join(dir, ".docharvest")
}

package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/docharvest"
	"github.com/fwojciec/docharvest/fs"
	"github.com/fwojciec/docharvest/github"
	"github.com/fwojciec/docharvest/harvest"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	Config *Config

	Manager *harvest.Manager
	Cache   CacheUsage

	// Scrapers used by the streaming commands, keyed by source type.
	Scrapers map[docharvest.SourceType]docharvest.Scraper
	Repos    *github.Scraper
	Files    *fs.Scraper

	RateLimits   RateLimitReporter
	TokenCounter docharvest.TokenCounter

	// OpenIndex opens the vector index. Each streaming run closes the index
	// it was given.
	OpenIndex func(ctx context.Context) (docharvest.ChunkIndex, error)
}

// CacheUsage reports the on-disk size of the fragment cache.
type CacheUsage interface {
	Dir() string
	DiskUsage() (files int, size int64, err error)
}

// RateLimitReporter reports the remaining repository API quota.
type RateLimitReporter interface {
	RateLimitStatus(ctx context.Context) (*github.RateLimitStatus, error)
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Home        string `env:"DOCHARVEST_HOME" help:"Data directory (default ~/.docharvest)"`
	ConfigFile  string `name:"config-file" env:"DOCHARVEST_CONFIG" help:"TOML configuration file (default <home>/config.toml)"`
	DB          string `env:"DOCHARVEST_DB" help:"SQLite vector database path (default <home>/vectors.db)"`
	DatabaseURL string `env:"DOCHARVEST_DATABASE_URL" help:"PostgreSQL URL; selects the pgvector store"`
	CacheDir    string `env:"DOCHARVEST_CACHE_DIR" help:"Fragment cache directory (default <home>/cache)"`
	Embedder    string `enum:"auto,gemini,featurehash" default:"auto" help:"Embedding backend (auto uses gemini when GEMINI_API_KEY is set)"`
	GeminiKey   string `name:"gemini-api-key" env:"GEMINI_API_KEY" help:"Gemini API key"`
	GitHubToken string `name:"github-token" env:"GITHUB_TOKEN" help:"GitHub token"`
	CrawlKey    string `name:"crawl-api-key" env:"CRAWL_API_KEY" help:"Managed crawl service API key"`
	CrawlURL    string `name:"crawl-api-url" env:"CRAWL_API_URL" help:"Managed crawl service URL"`
	RenderJS    bool   `name:"render-js" help:"Render pages in headless Chrome when fetching directly"`
	Verbose     bool   `short:"v" help:"Log debug output to stderr"`

	Fetch        FetchCmd        `cmd:"" help:"Fetch configured sources into the fragment cache"`
	Clean        CleanCmd        `cmd:"" help:"Remove every cached fragment"`
	Diagnose     DiagnoseCmd     `cmd:"" help:"Check the fragment cache for problems"`
	Stats        StatsCmd        `cmd:"" help:"Show fragment cache statistics"`
	AddFile      AddFileCmd      `cmd:"" name:"add-file" help:"Add a local file to the cache"`
	AddDir       AddDirCmd       `cmd:"" name:"add-dir" help:"Add a local directory to the cache"`
	GitHubStatus GitHubStatusCmd `cmd:"" name:"github-status" help:"Show the GitHub API rate limit"`
	Website      WebsiteCmd      `cmd:"" help:"Stream a website into the vector index"`
	GitHub       GitHubCmd       `cmd:"" name:"github" help:"Stream a GitHub repository into the vector index"`
	Process      ProcessCmd      `cmd:"" help:"Stream configured or listed sources into the vector index"`
	CheckMemory  CheckMemoryCmd  `cmd:"" name:"check-memory" help:"Show process memory usage"`
	ClearVectors ClearVectorsCmd `cmd:"" name:"clear-vectors" help:"Delete every vector from the index"`
	Query        QueryCmd        `cmd:"" help:"Search the vector index"`
	Sources      SourcesCmd      `cmd:"" help:"List configured sources"`
}

// FetchCmd is the "fetch" subcommand.
type FetchCmd struct {
	Source     string `short:"s" help:"Fetch only this source"`
	NoOptimize bool   `name:"no-optimize" help:"Store fragments without merging or de-duplication"`
}

// CleanCmd is the "clean" subcommand.
type CleanCmd struct{}

// DiagnoseCmd is the "diagnose" subcommand.
type DiagnoseCmd struct{}

// StatsCmd is the "stats" subcommand.
type StatsCmd struct {
	Tokens bool `help:"Count tokens in cached fragments"`
}

// AddFileCmd is the "add-file" subcommand.
type AddFileCmd struct {
	Path string `arg:"" help:"File path"`
	Name string `arg:"" help:"Source name"`
	Type string `arg:"" optional:"" help:"File type: markdown, text or pdf (detected from the extension by default)"`
}

// AddDirCmd is the "add-dir" subcommand.
type AddDirCmd struct {
	Path      string `arg:"" help:"Directory path"`
	Prefix    string `arg:"" optional:"" help:"Source name (default: directory name)"`
	Recursive string `arg:"" optional:"" default:"true" help:"Descend into subdirectories (true or false)"`
}

// GitHubStatusCmd is the "github-status" subcommand.
type GitHubStatusCmd struct{}

// WebsiteCmd is the "website" subcommand.
type WebsiteCmd struct {
	URL       string        `required:"" help:"Site URL"`
	Name      string        `help:"Source name (default: host name)"`
	Selector  string        `help:"CSS selector of the main content"`
	MaxPages  int           `name:"max-pages" help:"Page limit"`
	BatchSize int           `name:"batch-size" default:"100" help:"Fragments per index write"`
	Interval  time.Duration `default:"2s" help:"Minimum pause between index writes"`
}

// GitHubCmd is the "github" subcommand.
type GitHubCmd struct {
	URL       string        `required:"" help:"Repository URL or owner/repo"`
	Name      string        `help:"Source name (default: owner/repo)"`
	MaxDepth  int           `name:"max-depth" default:"3" help:"Directory depth limit"`
	OnlyDirs  []string      `name:"only-dirs" help:"Documentation directories to read instead of the defaults"`
	SkipCode  bool          `name:"skip-code" help:"Never index source code"`
	BatchSize int           `name:"batch-size" default:"100" help:"Fragments per index write"`
	Interval  time.Duration `default:"2s" help:"Minimum pause between index writes"`
}

// ProcessCmd is the "process" subcommand.
type ProcessCmd struct {
	Source    string        `xor:"input" help:"Configured source name"`
	Config    string        `xor:"input" type:"existingfile" help:"JSON file listing sources"`
	BatchSize int           `name:"batch-size" default:"100" help:"Fragments per index write"`
	Interval  time.Duration `default:"2s" help:"Minimum pause between index writes"`
}

// CheckMemoryCmd is the "check-memory" subcommand.
type CheckMemoryCmd struct{}

// ClearVectorsCmd is the "clear-vectors" subcommand.
type ClearVectorsCmd struct {
	Confirm bool `help:"Confirm deletion"`
}

// QueryCmd is the "query" subcommand.
type QueryCmd struct {
	Text     string  `arg:"" help:"Search text"`
	TopK     int     `name:"top-k" default:"5" help:"Maximum number of results"`
	MinScore float64 `name:"min-score" default:"0.7" help:"Minimum similarity"`
	Source   string  `help:"Only return fragments of this source"`
}

// SourcesCmd is the "sources" subcommand.
type SourcesCmd struct{}

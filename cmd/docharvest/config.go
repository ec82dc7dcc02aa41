package main

import (
	"errors"
	"os"
	"regexp"
	"time"

	"github.com/fwojciec/docharvest"
	"github.com/pelletier/go-toml/v2"
)

// Config is the optional TOML configuration file. It carries the static
// source registry and tuning shared by every command.
type Config struct {
	Sources []*docharvest.Source `toml:"sources"`

	Chunking  ChunkingConfig  `toml:"chunking"`
	Processor ProcessorConfig `toml:"processor"`
	Crawl     CrawlConfig     `toml:"crawl"`
	GitHub    GitHubConfig    `toml:"github"`
	Index     IndexConfig     `toml:"index"`

	// Concurrency is the number of sources fetched at once by "fetch".
	Concurrency int `toml:"concurrency"`
}

// ChunkingConfig overrides the splitter sizes.
type ChunkingConfig struct {
	MaxSize int `toml:"max_size"`
	MinSize int `toml:"min_size"`
	Overlap int `toml:"overlap"`
}

// ProcessorConfig tunes streaming into the vector index.
type ProcessorConfig struct {
	BatchSize int      `toml:"batch_size"`
	Interval  Duration `toml:"interval"`
}

// CrawlConfig tunes the website scraper.
type CrawlConfig struct {
	MaxChunks  int      `toml:"max_chunks"`
	DomainRate float64  `toml:"domain_rate"`
	Timeout    Duration `toml:"timeout"`
	RenderJS   bool     `toml:"render_js"`
}

// GitHubConfig tunes the repository scraper.
type GitHubConfig struct {
	// CorePatterns are regular expressions matched against repository URLs;
	// matching repositories have their source code indexed too.
	CorePatterns []string `toml:"core_patterns"`
	MaxDepth     int      `toml:"max_depth"`
}

// IndexConfig selects the vector index.
type IndexConfig struct {
	Name string `toml:"name"`
}

// Duration is a time.Duration written as a string ("2s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads the configuration file at path. A missing file yields
// an empty configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, docharvest.WrapError(docharvest.ECONFIG, err, "reading config %s", path)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a TOML configuration.
func ParseConfig(data []byte) (*Config, error) {
	// Sources default to enabled unless the file says otherwise.
	var probe struct {
		Sources []map[string]any `toml:"sources"`
	}
	if err := toml.Unmarshal(data, &probe); err != nil {
		return nil, docharvest.WrapError(docharvest.ECONFIG, err, "invalid config: %v", err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, docharvest.WrapError(docharvest.ECONFIG, err, "invalid config: %v", err)
	}

	seen := make(map[string]bool, len(cfg.Sources))
	for i, src := range cfg.Sources {
		if _, ok := probe.Sources[i]["enabled"]; !ok {
			src.Enabled = true
		}
		if err := src.Validate(); err != nil {
			return nil, err
		}
		if seen[src.Name] {
			return nil, docharvest.Errorf(docharvest.ECONFIG, "duplicate source name %q", src.Name)
		}
		seen[src.Name] = true
	}
	if _, err := cfg.corePatterns(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitOptions returns the splitter sizes with config overrides applied.
func (c *Config) splitOptions() docharvest.SplitOptions {
	opts := docharvest.DefaultSplitOptions()
	if c.Chunking.MaxSize > 0 {
		opts.MaxSize = c.Chunking.MaxSize
	}
	if c.Chunking.MinSize > 0 {
		opts.MinSize = c.Chunking.MinSize
	}
	if c.Chunking.Overlap > 0 {
		opts.Overlap = c.Chunking.Overlap
	}
	return opts
}

func (c *Config) corePatterns() ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(c.GitHub.CorePatterns))
	for _, p := range c.GitHub.CorePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, docharvest.Errorf(docharvest.ECONFIG, "invalid core pattern %q: %v", p, err)
		}
		res = append(res, re)
	}
	return res, nil
}

package docharvest

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

// SourceType identifies which scraper handles a source.
type SourceType string

// Supported source types.
const (
	SourceWebsite    SourceType = "website"
	SourceRepository SourceType = "repository"
	SourceFile       SourceType = "file"
)

// Source describes where documentation comes from.
type Source struct {
	Name     string     `json:"name" toml:"name"`
	URL      string     `json:"url,omitempty" toml:"url,omitempty"`
	Type     SourceType `json:"type" toml:"type"`
	Selector string     `json:"selector,omitempty" toml:"selector,omitempty"`
	FilePath string     `json:"filePath,omitempty" toml:"file_path,omitempty"`
	FileType string     `json:"fileType,omitempty" toml:"file_type,omitempty"`
	Enabled  bool       `json:"enabled" toml:"enabled"`

	// Crawl tuning for website sources. Zero values use scraper defaults.
	IncludePaths []string `json:"includePaths,omitempty" toml:"include_paths,omitempty"`
	ExcludePaths []string `json:"excludePaths,omitempty" toml:"exclude_paths,omitempty"`
	MaxDepth     int      `json:"maxDepth,omitempty" toml:"max_depth,omitempty"`
	MaxPages     int      `json:"maxPages,omitempty" toml:"max_pages,omitempty"`
}

// Validate returns an error if the source contains invalid fields.
func (s *Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return Errorf(EINVALID, "source name required")
	}
	switch s.Type {
	case SourceWebsite:
		u, err := url.Parse(s.URL)
		if err != nil || s.URL == "" {
			return Errorf(EINVALID, "source %q: valid URL required", s.Name)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return Errorf(EINVALID, "source %q: URL must be http or https", s.Name)
		}
		if s.Selector != "" && strings.ContainsAny(s.Selector, "{}") {
			return Errorf(EINVALID, "source %q: selector must be a CSS selector", s.Name)
		}
	case SourceRepository:
		if s.URL == "" {
			return Errorf(EINVALID, "source %q: repository URL required", s.Name)
		}
	case SourceFile:
		if s.FilePath == "" {
			return Errorf(EINVALID, "source %q: file path required", s.Name)
		}
	default:
		return Errorf(EINVALID, "source %q: unknown type %q", s.Name, s.Type)
	}
	for _, p := range append(append([]string{}, s.IncludePaths...), s.ExcludePaths...) {
		if _, err := regexp.Compile(p); err != nil {
			return Errorf(EINVALID, "source %q: invalid path pattern %q: %v", s.Name, p, err)
		}
	}
	return nil
}

// URLFilter compiles the source's include/exclude path patterns.
// Returns nil when the source has no patterns.
func (s *Source) URLFilter() (*URLFilter, error) {
	if len(s.IncludePaths) == 0 && len(s.ExcludePaths) == 0 {
		return nil, nil
	}
	f := &URLFilter{}
	for _, p := range s.IncludePaths {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, Errorf(EINVALID, "invalid include pattern %q: %v", p, err)
		}
		f.Include = append(f.Include, re)
	}
	for _, p := range s.ExcludePaths {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, Errorf(EINVALID, "invalid exclude pattern %q: %v", p, err)
		}
		f.Exclude = append(f.Exclude, re)
	}
	return f, nil
}

// ParseSources decodes a JSON batch file. The document is either an array of
// sources or an object with a "sources" array. Sources without an explicit
// "enabled" field are enabled.
func ParseSources(data []byte) ([]*Source, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, Errorf(EINVALID, "empty source list")
	}

	var raw []json.RawMessage
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, WrapError(EPARSE, err, "invalid source list: %v", err)
		}
	} else {
		var doc struct {
			Sources []json.RawMessage `json:"sources"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, WrapError(EPARSE, err, "invalid source list: %v", err)
		}
		raw = doc.Sources
	}

	sources := make([]*Source, 0, len(raw))
	seen := make(map[string]bool)
	for i, r := range raw {
		src := &Source{Enabled: true}
		if err := json.Unmarshal(r, src); err != nil {
			return nil, WrapError(EPARSE, err, "source #%d: %v", i+1, err)
		}
		if err := src.Validate(); err != nil {
			return nil, err
		}
		if seen[src.Name] {
			return nil, Errorf(EINVALID, "duplicate source name %q", src.Name)
		}
		seen[src.Name] = true
		sources = append(sources, src)
	}
	return sources, nil
}

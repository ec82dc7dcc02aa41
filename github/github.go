// Package github implements the repository scraper on top of the GitHub
// REST API (google/go-github).
package github

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/docharvest"
)

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

// String returns "owner/name".
func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepoURL accepts https://github.com/owner/repo[/...], owner/repo and
// git@github.com:owner/repo.git forms.
func ParseRepoURL(raw string) (Repo, error) {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, "git@"):
		_, path, ok := strings.Cut(s, ":")
		if !ok {
			return Repo{}, docharvest.Errorf(docharvest.EINVALID, "invalid repository URL %q", raw)
		}
		s = path
	case strings.Contains(s, "://"):
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return Repo{}, docharvest.Errorf(docharvest.EINVALID, "invalid repository URL %q", raw)
		}
		s = u.Path
	case strings.HasPrefix(s, "github.com/"):
		s = strings.TrimPrefix(s, "github.com/")
	}

	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Repo{}, docharvest.Errorf(docharvest.EINVALID, "invalid repository URL %q", raw)
	}
	return Repo{Owner: parts[0], Name: strings.TrimSuffix(parts[1], ".git")}, nil
}

// Entry is an item of a repository directory listing.
type Entry struct {
	Name string
	Path string
	Type string // "file" or "dir"
	Size int
}

// File is a decoded repository file.
type File struct {
	Path    string
	HTMLURL string
	Content string
}

// RateLimitStatus is the core API quota of the authenticated caller.
type RateLimitStatus struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// API is the subset of the GitHub REST API the scraper uses. Failures carry
// docharvest error codes; a missing path is ENOTFOUND.
type API interface {
	DefaultBranch(ctx context.Context, repo Repo) (string, error)
	BranchExists(ctx context.Context, repo Repo, branch string) (bool, error)
	Readme(ctx context.Context, repo Repo, ref string) (*File, error)
	ListDir(ctx context.Context, repo Repo, path, ref string) ([]Entry, error)
	File(ctx context.Context, repo Repo, path, ref string) (*File, error)
	RateLimit(ctx context.Context) (*RateLimitStatus, error)
}

package docharvest

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnorePatterns are doublestar globs for directories and files the
// repository and local file scrapers never read: version control, build
// output, dependencies and lockfiles.
var DefaultIgnorePatterns = []string{
	"**/.git",
	"**/.svn",
	"**/.hg",
	"**/node_modules",
	"**/vendor",
	"**/bower_components",
	"**/dist",
	"**/build",
	"**/target",
	"**/out",
	"**/coverage",
	"**/.next",
	"**/.nuxt",
	"**/.cache",
	"**/__pycache__",
	"**/.venv",
	"**/venv",
	"**/.tox",
	"**/.idea",
	"**/.vscode",
	"**/*.lock",
	"**/package-lock.json",
	"**/pnpm-lock.yaml",
	"**/go.sum",
	"**/*.min.js",
	"**/*.min.css",
	"**/*.map",
}

// IsIgnored reports whether the slash- or OS-separated relative path
// matches any of patterns. Invalid patterns never match.
func IsIgnored(rel string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

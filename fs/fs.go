// Package fs reads documentation from the local file system and caches
// fragments on disk.
package fs

import (
	"net/url"
	"path/filepath"
	"strings"
)

// SanitizeName converts a source name to a safe file name stem.
// Example: "react/docs v2" → "react_docs_v2"
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), ".")
	if s == "" {
		return "_"
	}
	return s
}

// FileURL returns the file:// URL of path, made absolute when possible.
func FileURL(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

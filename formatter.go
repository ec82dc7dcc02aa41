package docharvest

import (
	"fmt"
	"strings"
)

// FormatSearchResults formats query hits for display.
// Uses title if available, falls back to URL, then source name.
// Results are separated by blank lines.
func FormatSearchResults(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	parts := make([]string, 0, len(results))
	for i, r := range results {
		c := r.Chunk
		if c == nil {
			continue
		}
		header := c.Title
		if header == "" {
			header = c.URL
		}
		if header == "" {
			header = c.Source
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "## %d. %s (score %.3f)\n", i+1, header, r.Score)
		if c.URL != "" && c.URL != header {
			fmt.Fprintf(&sb, "Source: %s\n", c.URL)
		}
		sb.WriteString(c.Content)
		parts = append(parts, sb.String())
	}

	return strings.Join(parts, "\n\n")
}

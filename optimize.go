package docharvest

import (
	"maps"
	"strings"
	"unicode"
)

// MetaMergedWith is the metadata key listing IDs folded into a fragment.
const MetaMergedWith = "mergedWith"

// OptimizeOptions configures Optimize.
type OptimizeOptions struct {
	// MinSize is the length below which a fragment is merged with a neighbour.
	MinSize int

	// MaxSize caps the length of a merged fragment.
	MaxSize int

	// PrefixLength is the number of normalized runes compared for duplicates.
	PrefixLength int
}

// DefaultOptimizeOptions returns the optimizer defaults.
func DefaultOptimizeOptions() OptimizeOptions {
	return OptimizeOptions{
		MinSize:      MinChunkLength,
		MaxSize:      2 * DefaultMaxChunkSize,
		PrefixLength: 100,
	}
}

// Optimize groups fragments by (source, category), merges adjacent fragments
// that are undersized or share a title and URL, and drops fragments whose
// normalized prefix was already seen. The input is not modified.
//
// Merging and de-duplication repeat until nothing changes, so applying
// Optimize to its own output returns the same fragments.
func Optimize(chunks []*Chunk, opts OptimizeOptions) []*Chunk {
	if opts.PrefixLength <= 0 {
		opts.PrefixLength = 100
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 2 * DefaultMaxChunkSize
	}

	out := groupChunks(chunks)
	for {
		next := dedupChunks(mergeChunks(out, opts), opts.PrefixLength)
		if len(next) == len(out) {
			return next
		}
		out = next
	}
}

func groupChunks(chunks []*Chunk) []*Chunk {
	var order []string
	groups := make(map[string][]*Chunk)
	for _, c := range chunks {
		if c == nil {
			continue
		}
		key := c.Source + "\x00" + c.Category
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}

	out := make([]*Chunk, 0, len(chunks))
	for _, key := range order {
		out = append(out, groups[key]...)
	}
	return out
}

func mergeChunks(chunks []*Chunk, opts OptimizeOptions) []*Chunk {
	if len(chunks) == 0 {
		return chunks
	}

	out := make([]*Chunk, 0, len(chunks))
	cur := chunks[0]
	for _, next := range chunks[1:] {
		if shouldMerge(cur, next, opts) {
			cur = mergePair(cur, next)
			continue
		}
		out = append(out, cur)
		cur = next
	}
	return append(out, cur)
}

func shouldMerge(a, b *Chunk, opts OptimizeOptions) bool {
	if a.Source != b.Source || a.Category != b.Category {
		return false
	}
	if len(a.Content)+2+len(b.Content) > opts.MaxSize {
		return false
	}
	small := len(a.Content) < opts.MinSize || len(b.Content) < opts.MinSize
	samePage := a.Title == b.Title && a.URL == b.URL
	return small || samePage
}

// mergePair returns a new fragment holding a followed by b.
func mergePair(a, b *Chunk) *Chunk {
	merged := *a
	merged.Content = a.Content + "\n\n" + b.Content
	merged.Metadata = maps.Clone(a.Metadata)
	if merged.Metadata == nil {
		merged.Metadata = make(map[string]any)
	}
	ids := append(MergedWith(a), b.ID)
	ids = append(ids, MergedWith(b)...)
	merged.Metadata[MetaMergedWith] = ids
	return &merged
}

// MergedWith returns the IDs recorded as merged into c.
func MergedWith(c *Chunk) []string {
	switch v := c.Metadata[MetaMergedWith].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		// Decoded from JSON.
		ids := make([]string, 0, len(v))
		for _, id := range v {
			if s, ok := id.(string); ok {
				ids = append(ids, s)
			}
		}
		return ids
	}
	return nil
}

func dedupChunks(chunks []*Chunk, prefixLen int) []*Chunk {
	seen := make(map[string]bool, len(chunks))
	out := make([]*Chunk, 0, len(chunks))
	for _, c := range chunks {
		key := NormalizedPrefix(c.Content, prefixLen)
		if key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, c)
	}
	return out
}

// NormalizedPrefix lower-cases content, strips punctuation, collapses
// whitespace and returns the first n runes.
func NormalizedPrefix(content string, n int) string {
	var sb strings.Builder
	count := 0
	space := false
	for _, r := range content {
		if count >= n {
			break
		}
		switch {
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			continue
		case unicode.IsSpace(r):
			space = sb.Len() > 0
			continue
		}
		if space {
			sb.WriteByte(' ')
			count++
			space = false
			if count >= n {
				break
			}
		}
		sb.WriteRune(unicode.ToLower(r))
		count++
	}
	return sb.String()
}

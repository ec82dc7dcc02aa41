package docharvest

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+?)(?:\s+#+)?\s*$`)

// Section is a heading of a markdown document and the text beneath it.
// A document's preamble before its first heading has Level 0 and no title.
type Section struct {
	Level   int    `json:"level"`
	Title   string `json:"title"`
	Anchor  string `json:"anchor"`
	Content string `json:"content"`
}

// ParseSections splits markdown at heading boundaries (H1-H6). Headings
// inside fenced code blocks are treated as content. Anchors are URL-safe
// and duplicates get numeric suffixes.
func ParseSections(markdown string) []Section {
	if strings.TrimSpace(markdown) == "" {
		return nil
	}

	var sections []Section
	anchorCounts := make(map[string]int)
	current := Section{}
	var body strings.Builder
	inFence := false
	fence := ""

	flush := func() {
		current.Content = strings.TrimSpace(body.String())
		if current.Level > 0 || current.Content != "" {
			sections = append(sections, current)
		}
		body.Reset()
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if marker := fenceMarker(trimmed); marker != "" {
			if !inFence {
				inFence, fence = true, marker
			} else if strings.HasPrefix(trimmed, fence) {
				inFence = false
			}
		}

		if !inFence {
			if m := headingRe.FindStringSubmatch(line); m != nil {
				flush()
				title := strings.TrimSpace(m[2])
				current = Section{
					Level:  len(m[1]),
					Title:  title,
					Anchor: uniqueAnchor(anchorCounts, generateAnchor(title)),
				}
				continue
			}
		}

		body.WriteString(line)
		body.WriteByte('\n')
	}
	flush()

	return sections
}

func fenceMarker(line string) string {
	switch {
	case strings.HasPrefix(line, "```"):
		return "```"
	case strings.HasPrefix(line, "~~~"):
		return "~~~"
	}
	return ""
}

func uniqueAnchor(counts map[string]int, base string) string {
	count, exists := counts[base]
	if !exists {
		counts[base] = 1
		return base
	}
	counts[base]++
	return base + "-" + strconv.Itoa(count)
}

// generateAnchor creates a URL-safe anchor from a title.
// Converts to lowercase, replaces spaces with hyphens, removes special chars.
func generateAnchor(title string) string {
	var sb strings.Builder
	prevHyphen := false

	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			prevHyphen = false
		} else if unicode.IsSpace(r) || r == '-' {
			if !prevHyphen && sb.Len() > 0 {
				sb.WriteRune('-')
				prevHyphen = true
			}
		}
	}

	return strings.TrimSuffix(sb.String(), "-")
}

// MinSectionLength is the trimmed length below which a section is dropped.
const MinSectionLength = 50

// SectionChunks splits markdown into heading sections, drops sections whose
// trimmed content is shorter than minSection, and splits the rest into
// fragments. Sections without a heading take docTitle. Fragment URLs carry
// the section anchor.
func SectionChunks(source, category, docTitle, docURL, markdown string, minSection int, opts SplitOptions) []*Chunk {
	var chunks []*Chunk
	ordinal := 0
	for _, s := range ParseSections(markdown) {
		if len(strings.TrimSpace(s.Content)) < minSection {
			continue
		}
		title, u := docTitle, docURL
		if s.Title != "" {
			title = s.Title
		}
		if s.Anchor != "" {
			u = docURL + "#" + s.Anchor
		}
		for _, text := range opts.Split(s.Content) {
			chunks = append(chunks, NewChunk(source, category, title, u, ordinal, text))
			ordinal++
		}
	}
	return chunks
}

package docharvest

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var paragraphBreakRe = regexp.MustCompile(`\n[ \t]*\n`)

// SplitOptions bundles the splitter's size parameters.
type SplitOptions struct {
	MaxSize int
	MinSize int
	Overlap int
}

// DefaultSplitOptions returns the sizes used by every scraper unless overridden.
func DefaultSplitOptions() SplitOptions {
	return SplitOptions{
		MaxSize: DefaultMaxChunkSize,
		MinSize: DefaultMinChunkSize,
		Overlap: DefaultChunkOverlap,
	}
}

// Split splits text with the receiver's sizes.
func (o SplitOptions) Split(text string) []string {
	return SplitIntoChunks(text, o.MaxSize, o.MinSize, o.Overlap)
}

// SplitParagraphs splits text on blank lines, dropping empty paragraphs.
func SplitParagraphs(text string) []string {
	raw := paragraphBreakRe.Split(strings.ReplaceAll(text, "\r\n", "\n"), -1)
	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// SplitIntoChunks splits text into fragments of roughly maxSize characters.
//
// Paragraphs are packed greedily; the blank-line separators between packed
// paragraphs do not count against maxSize. A paragraph longer than maxSize
// is cut at the last sentence end inside the window, else the last
// whitespace, else at maxSize. Every boundary carries up to overlap
// characters of trailing context (the last sentence, or the last words)
// into the next fragment. Only the final fragment may be shorter than
// minSize; a short tail is merged into its predecessor when there is one.
//
// Leaving separators aside, every fragment fits in maxSize except that last
// one, which can grow by the merged tail to under maxSize+minSize.
func SplitIntoChunks(text string, maxSize, minSize, overlap int) []string {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}
	if minSize < 0 {
		minSize = 0
	}
	if minSize > maxSize/2 {
		minSize = maxSize / 2
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > maxSize/2 {
		overlap = maxSize / 2
	}

	s := &splitter{maxSize: maxSize, minSize: minSize, overlap: overlap}
	for _, para := range SplitParagraphs(text) {
		s.add(para)
	}
	s.finish()

	chunks := make([]string, len(s.out))
	for i, f := range s.out {
		chunks[i] = f.text
	}
	return chunks
}

type fragment struct {
	text string
	// lead is the number of leading bytes carried over from the previous fragment.
	lead int
}

type splitter struct {
	maxSize, minSize, overlap int

	out []fragment
	cur string
	// lead is the carried-over prefix length of cur. cur == lead-only
	// means no new content has been added yet.
	lead int
}

func (s *splitter) hasContent() bool {
	return len(s.cur) > s.lead
}

func (s *splitter) add(para string) {
	if len(para) > s.maxSize {
		s.addLong(para)
		return
	}

	if !s.hasContent() {
		s.appendText(para)
		return
	}

	if len(s.cur)+len(para) > s.maxSize {
		if len(s.cur) < s.minSize {
			// Too short to stand alone: fill it from para instead.
			s.addLong(para)
			return
		}
		s.emit()
	}
	s.appendText(para)
}

func (s *splitter) appendText(para string) {
	if s.cur == "" {
		s.cur = para
		return
	}
	if !s.hasContent() {
		if len(s.cur)+2+len(para) > s.maxSize {
			s.cur, s.lead = para, 0
			return
		}
		// Separator after the carried prefix belongs to the prefix.
		s.cur += "\n\n"
		s.lead = len(s.cur)
		s.cur += para
		return
	}
	s.cur += "\n\n" + para
}

// emit closes the current fragment and starts the next one with its overlap.
func (s *splitter) emit() {
	if !s.hasContent() {
		return
	}
	s.out = append(s.out, fragment{text: s.cur, lead: s.lead})
	s.cur = overlapText(s.cur, s.overlap)
	s.lead = len(s.cur)
}

// addLong hard-splits a paragraph, joined to any fragment still below
// minSize, into pieces of at most maxSize.
func (s *splitter) addLong(para string) {
	if s.hasContent() && len(s.cur) >= s.minSize {
		s.emit()
	}

	text := para
	lead := 0
	if s.cur != "" {
		if s.hasContent() {
			lead = s.lead
		} else {
			lead = len(s.cur) + 2
		}
		text = s.cur + "\n\n" + para
	}
	s.cur, s.lead = "", 0

	lo := s.maxSize/2 + 1
	for len(text) > s.maxSize {
		cut := findCut(text, lo, s.maxSize)
		piece := strings.TrimRightFunc(text[:cut], isSpace)
		s.out = append(s.out, fragment{text: piece, lead: min(lead, len(piece))})

		carry := overlapText(piece, s.overlap)
		rest := strings.TrimLeftFunc(text[cut:], isSpace)
		if len(carry)+1 >= cut {
			carry = ""
		}
		if carry != "" {
			text = carry + " " + rest
			lead = len(carry) + 1
		} else {
			text = rest
			lead = 0
		}
	}

	if strings.TrimSpace(text[lead:]) == "" {
		s.cur = strings.TrimSpace(text[:lead])
		s.lead = len(s.cur)
		return
	}
	s.cur, s.lead = text, lead
}

func (s *splitter) finish() {
	s.emit()

	n := len(s.out)
	if n < 2 {
		return
	}
	last := s.out[n-1]
	if len(last.text) >= s.minSize {
		return
	}
	tail := strings.TrimSpace(last.text[last.lead:])
	s.out = s.out[:n-1]
	if tail != "" {
		s.out[n-2].text += "\n\n" + tail
	}
}

// findCut picks a cut position in text within [lo, hi].
func findCut(text string, lo, hi int) int {
	if hi > len(text) {
		hi = len(text)
	}
	if lo > hi {
		lo = hi
	}
	window := text[lo:hi]

	for i := len(window) - 1; i >= 0; i-- {
		if isSentenceEnd(window[i]) && (lo+i+1 == len(text) || isSpaceByte(text[lo+i+1])) {
			return lo + i + 1
		}
	}
	if i := strings.LastIndexFunc(window, isSpace); i > 0 {
		return lo + i
	}

	cut := hi
	for cut > lo && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return cut
}

// overlapText returns the trailing context of chunk that fits in limit
// characters: its last sentence when that fits, else its last whole words.
func overlapText(chunk string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s := strings.TrimSpace(chunk)

	for i := len(s) - 2; i >= 0; i-- {
		if isSentenceEnd(s[i]) && isSpaceByte(s[i+1]) {
			if last := strings.TrimSpace(s[i+1:]); last != "" && len(last) <= limit {
				return last
			}
			break
		}
	}

	words := strings.Fields(s)
	size := 0
	start := len(words)
	for start > 0 {
		w := len(words[start-1])
		if size > 0 {
			w++
		}
		if size+w > limit {
			break
		}
		size += w
		start--
	}
	return strings.Join(words[start:], " ")
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

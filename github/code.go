package github

import (
	"path"
	"regexp"
	"strings"
)

// MinCommentLength is the trimmed length below which a comment block is
// not worth indexing.
const MinCommentLength = 40

type commentStyle int

const (
	styleNone commentStyle = iota
	styleC                 // /* */ and //
	styleHash              // #
	stylePython            // # and docstrings
	styleSQL               // --
)

var commentStyles = map[string]commentStyle{
	".go":    styleC,
	".js":    styleC,
	".jsx":   styleC,
	".mjs":   styleC,
	".ts":    styleC,
	".tsx":   styleC,
	".java":  styleC,
	".kt":    styleC,
	".scala": styleC,
	".swift": styleC,
	".c":     styleC,
	".h":     styleC,
	".cc":    styleC,
	".cpp":   styleC,
	".hpp":   styleC,
	".cs":    styleC,
	".rs":    styleC,
	".sol":   styleC,
	".proto": styleC,
	".py":    stylePython,
	".rb":    styleHash,
	".sh":    styleHash,
	".bash":  styleHash,
	".sql":   styleSQL,
	".lua":   styleSQL,
	".hs":    styleSQL,
}

var (
	blockCommentRe = regexp.MustCompile(`(?s)/\*+(.*?)\*/`)
	docstringRe    = regexp.MustCompile(`(?s)("""|''')(.*?)("""|''')`)
	blockLeadRe    = regexp.MustCompile(`(?m)^[ \t]*\*+ ?`)
)

// IsCodeFile reports whether comments can be extracted from p.
func IsCodeFile(p string) bool {
	return commentStyles[strings.ToLower(path.Ext(p))] != styleNone
}

// ExtractComments returns the comment blocks of a source file with comment
// markers removed: block comments, runs of line comments and, for Python,
// docstrings. Blocks shorter than MinCommentLength are dropped.
func ExtractComments(p, content string) []string {
	style := commentStyles[strings.ToLower(path.Ext(p))]
	var blocks []string
	switch style {
	case styleC:
		for _, m := range blockCommentRe.FindAllStringSubmatch(content, -1) {
			blocks = append(blocks, blockLeadRe.ReplaceAllString(m[1], ""))
		}
		blocks = append(blocks, lineComments(blockCommentRe.ReplaceAllString(content, ""), "//")...)
	case styleHash:
		blocks = lineComments(content, "#")
	case stylePython:
		for _, m := range docstringRe.FindAllStringSubmatch(content, -1) {
			blocks = append(blocks, m[2])
		}
		blocks = append(blocks, lineComments(docstringRe.ReplaceAllString(content, ""), "#")...)
	case styleSQL:
		blocks = lineComments(content, "--")
	}

	out := blocks[:0]
	for _, b := range blocks {
		if b = strings.TrimSpace(b); len(b) >= MinCommentLength {
			out = append(out, b)
		}
	}
	return out
}

// lineComments groups consecutive lines starting with marker into blocks.
func lineComments(content, marker string) []string {
	var blocks []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, marker) || strings.HasPrefix(trimmed, "#!") {
			flush()
			continue
		}
		text := strings.TrimLeft(strings.TrimPrefix(trimmed, marker), "/#-")
		cur = append(cur, strings.TrimSpace(text))
	}
	flush()
	return blocks
}

var importantNames = []string{"config", "schema", "types", "interface", "constants", "consts"}

var importantExts = []string{".d.ts", ".proto", ".graphql", ".gql"}

// IsImportantFile reports whether p names a file worth indexing whole:
// configuration, schemas, type definitions, interfaces and constants.
func IsImportantFile(p string) bool {
	base := strings.ToLower(path.Base(p))
	for _, ext := range importantExts {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	if !IsCodeFile(p) && !strings.HasSuffix(base, ".json") && !strings.HasSuffix(base, ".yaml") && !strings.HasSuffix(base, ".toml") {
		return false
	}
	stem := strings.TrimSuffix(base, path.Ext(base))
	for _, name := range importantNames {
		if strings.Contains(stem, name) {
			return true
		}
	}
	return false
}

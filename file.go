package docharvest

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

// FileKind is the content kind of a local file.
type FileKind string

// File kinds understood by the local file scraper.
const (
	FileUnknown  FileKind = ""
	FileMarkdown FileKind = "markdown"
	FileText     FileKind = "text"
	FilePDF      FileKind = "pdf"
)

var fileKinds = map[string]FileKind{
	".md":       FileMarkdown,
	".markdown": FileMarkdown,
	".mdx":      FileMarkdown,
	".txt":      FileText,
	".text":     FileText,
	".rst":      FileText,
	".adoc":     FileText,
	".pdf":      FilePDF,
}

// DetectFileKind infers a kind from the path's extension. A non-empty
// override ("markdown", "md", "text", "txt", "pdf") wins over the extension.
func DetectFileKind(path, override string) FileKind {
	switch strings.ToLower(strings.TrimSpace(override)) {
	case "markdown", "md", "mdx":
		return FileMarkdown
	case "text", "txt", "plain":
		return FileText
	case "pdf":
		return FilePDF
	}
	return fileKinds[strings.ToLower(filepath.Ext(path))]
}

// PDFConverter extracts plain text from PDF documents.
type PDFConverter interface {
	ConvertPDF(ctx context.Context, r io.Reader) (string, error)
}

// ChunkCache persists the fragments of each source between runs.
type ChunkCache interface {
	// Load returns the cached fragments of every source, keyed by source
	// name. A store that does not exist yet is created empty.
	Load(ctx context.Context) (map[string][]*Chunk, error)

	// Save atomically replaces the cache entry for source.
	Save(ctx context.Context, source string, chunks []*Chunk) error

	// Remove deletes the cache entry for source. Missing entries are ignored.
	Remove(ctx context.Context, source string) error

	// Clear removes every cache entry.
	Clear(ctx context.Context) error
}

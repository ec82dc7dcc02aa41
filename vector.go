package docharvest

import (
	"context"
	"math"
	"time"
)

// Index defaults.
const (
	DefaultIndexName  = "docharvest"
	DefaultDimension  = 1536
	DefaultTopK       = 5
	DefaultMinScore   = 0.7
	DeleteAllSentinel = "*"
)

// Metric is a vector similarity metric.
type Metric string

// Supported metrics.
const (
	MetricCosine Metric = "cosine"
)

// IndexSpec describes a named vector index.
type IndexSpec struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    Metric `json:"metric"`
}

// Validate returns an error if the spec contains invalid fields.
func (s IndexSpec) Validate() error {
	if s.Name == "" {
		return Errorf(EINVALID, "index name required")
	}
	if s.Dimension <= 0 {
		return Errorf(EINVALID, "index dimension must be positive")
	}
	if s.Metric != MetricCosine {
		return Errorf(EINVALID, "unsupported metric %q", s.Metric)
	}
	return nil
}

// VectorRecord is a vector with its metadata.
type VectorRecord struct {
	ID       string         `json:"id"`
	Vector   []float32      `json:"vector"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// VectorQuery is a similarity query.
type VectorQuery struct {
	Vector   []float32
	TopK     int
	MinScore float64

	// Filter restricts matches to records whose metadata has equal string values.
	Filter map[string]string
}

// VectorMatch is a query hit.
type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// IndexStats describes the contents of an index.
type IndexStats struct {
	Spec    IndexSpec
	Records int

	// UpdatedAt is the time of the last write, zero for an empty index.
	UpdatedAt time.Time
}

// VectorStore persists vectors in named indexes.
//
// Every method is part of the contract; callers never probe for optional
// capabilities at runtime.
type VectorStore interface {
	// EnsureIndex creates the index if it does not exist. It returns
	// EINVALID if an index with the same name exists with another dimension.
	EnsureIndex(ctx context.Context, spec IndexSpec) error

	// Upsert inserts or replaces records.
	Upsert(ctx context.Context, index string, records []*VectorRecord) error

	// Query returns the best matches, highest score first.
	Query(ctx context.Context, index string, q VectorQuery) ([]VectorMatch, error)

	// Delete removes records by ID. Missing IDs are ignored.
	Delete(ctx context.Context, index string, ids []string) error

	// Rebuild drops the index with all its records and recreates it empty.
	Rebuild(ctx context.Context, spec IndexSpec) error

	// Stats returns the index description and record count.
	// Returns ENOTFOUND if the index does not exist.
	Stats(ctx context.Context, index string) (*IndexStats, error)

	// Close releases the store's resources.
	Close() error
}

// Embedder turns texts into vectors.
type Embedder interface {
	// Embed returns one vector per text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the length of the produced vectors.
	Dimensions() int
}

// TokenCounter counts tokens in text for a specific model.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

// SearchResult is a fragment returned by a similarity query.
type SearchResult struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// CosineSimilarity returns the cosine similarity of a and b, or 0 when
// either is a zero vector or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Normalize scales v to unit length in place and returns it.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	n := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= n
	}
	return v
}

// Metadata keys written for every stored fragment.
const (
	MetaContent   = "content"
	MetaTitle     = "title"
	MetaURL       = "url"
	MetaSource    = "source"
	MetaCategory  = "category"
	MetaCreatedAt = "createdAt"
	MetaExtra     = "extra"
)

// RecordMetadata flattens a fragment into vector metadata.
func RecordMetadata(c *Chunk) map[string]any {
	md := map[string]any{
		MetaContent:   c.Content,
		MetaTitle:     c.Title,
		MetaURL:       c.URL,
		MetaSource:    c.Source,
		MetaCategory:  c.Category,
		MetaCreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
	}
	if len(c.Metadata) > 0 {
		md[MetaExtra] = c.Metadata
	}
	return md
}

// ChunkFromRecord rebuilds a fragment from vector metadata.
func ChunkFromRecord(id string, md map[string]any) *Chunk {
	str := func(key string) string {
		s, _ := md[key].(string)
		return s
	}
	c := &Chunk{
		ID:       id,
		Content:  str(MetaContent),
		Title:    str(MetaTitle),
		URL:      str(MetaURL),
		Source:   str(MetaSource),
		Category: str(MetaCategory),
	}
	if t, err := time.Parse(time.RFC3339, str(MetaCreatedAt)); err == nil {
		c.CreatedAt = t
	}
	if extra, ok := md[MetaExtra].(map[string]any); ok {
		c.Metadata = extra
	}
	return c
}

// StoreResult counts the outcome of storing fragments.
type StoreResult struct {
	Stored int `json:"stored"`
	Failed int `json:"failed"`
}

// QueryOptions tunes a similarity query.
type QueryOptions struct {
	TopK     int
	MinScore float64

	// Filter restricts results to fragments with equal metadata values,
	// e.g. {"source": "react"}.
	Filter map[string]string
}

// DefaultQueryOptions returns the query defaults: 5 results scoring at
// least 0.7.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{TopK: DefaultTopK, MinScore: DefaultMinScore}
}

// ChunkIndex stores fragments as vectors and answers similarity queries.
type ChunkIndex interface {
	// StoreDocuments embeds and upserts fragments. Fragments that cannot be
	// embedded or stored are counted as failed; the error is reserved for
	// cancellation.
	StoreDocuments(ctx context.Context, chunks []*Chunk) (StoreResult, error)

	// QueryByText returns fragments ranked by similarity to text.
	QueryByText(ctx context.Context, text string, opts QueryOptions) ([]SearchResult, error)

	// DeleteDocuments removes fragments by ID. A single DeleteAllSentinel ID
	// clears the whole index.
	DeleteDocuments(ctx context.Context, ids []string) error

	Close() error
}

package mock

import (
	"context"

	"github.com/fwojciec/docharvest"
)

var (
	_ docharvest.VectorStore  = (*VectorStore)(nil)
	_ docharvest.Embedder     = (*Embedder)(nil)
	_ docharvest.TokenCounter = (*TokenCounter)(nil)
)

// VectorStore is a mock implementation of docharvest.VectorStore.
type VectorStore struct {
	EnsureIndexFn func(ctx context.Context, spec docharvest.IndexSpec) error
	UpsertFn      func(ctx context.Context, index string, records []*docharvest.VectorRecord) error
	QueryFn       func(ctx context.Context, index string, q docharvest.VectorQuery) ([]docharvest.VectorMatch, error)
	DeleteFn      func(ctx context.Context, index string, ids []string) error
	RebuildFn     func(ctx context.Context, spec docharvest.IndexSpec) error
	StatsFn       func(ctx context.Context, index string) (*docharvest.IndexStats, error)
	CloseFn       func() error
}

func (s *VectorStore) EnsureIndex(ctx context.Context, spec docharvest.IndexSpec) error {
	return s.EnsureIndexFn(ctx, spec)
}

func (s *VectorStore) Upsert(ctx context.Context, index string, records []*docharvest.VectorRecord) error {
	return s.UpsertFn(ctx, index, records)
}

func (s *VectorStore) Query(ctx context.Context, index string, q docharvest.VectorQuery) ([]docharvest.VectorMatch, error) {
	return s.QueryFn(ctx, index, q)
}

func (s *VectorStore) Delete(ctx context.Context, index string, ids []string) error {
	return s.DeleteFn(ctx, index, ids)
}

func (s *VectorStore) Rebuild(ctx context.Context, spec docharvest.IndexSpec) error {
	return s.RebuildFn(ctx, spec)
}

func (s *VectorStore) Stats(ctx context.Context, index string) (*docharvest.IndexStats, error) {
	return s.StatsFn(ctx, index)
}

func (s *VectorStore) Close() error {
	return s.CloseFn()
}

// Embedder is a mock implementation of docharvest.Embedder.
type Embedder struct {
	EmbedFn      func(ctx context.Context, texts []string) ([][]float32, error)
	DimensionsFn func() int
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.EmbedFn(ctx, texts)
}

func (e *Embedder) Dimensions() int {
	return e.DimensionsFn()
}

// TokenCounter is a mock implementation of docharvest.TokenCounter.
type TokenCounter struct {
	CountTokensFn func(ctx context.Context, text string) (int, error)
}

func (t *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	return t.CountTokensFn(ctx, text)
}

var _ docharvest.ChunkIndex = (*ChunkIndex)(nil)

// ChunkIndex is a mock implementation of docharvest.ChunkIndex.
type ChunkIndex struct {
	StoreDocumentsFn  func(ctx context.Context, chunks []*docharvest.Chunk) (docharvest.StoreResult, error)
	QueryByTextFn     func(ctx context.Context, text string, opts docharvest.QueryOptions) ([]docharvest.SearchResult, error)
	DeleteDocumentsFn func(ctx context.Context, ids []string) error
	CloseFn           func() error
}

func (i *ChunkIndex) StoreDocuments(ctx context.Context, chunks []*docharvest.Chunk) (docharvest.StoreResult, error) {
	return i.StoreDocumentsFn(ctx, chunks)
}

func (i *ChunkIndex) QueryByText(ctx context.Context, text string, opts docharvest.QueryOptions) ([]docharvest.SearchResult, error) {
	return i.QueryByTextFn(ctx, text, opts)
}

func (i *ChunkIndex) DeleteDocuments(ctx context.Context, ids []string) error {
	return i.DeleteDocumentsFn(ctx, ids)
}

func (i *ChunkIndex) Close() error {
	return i.CloseFn()
}

package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docharvest"
)

var (
	_ docharvest.Embedder    = (*LoggingEmbedder)(nil)
	_ docharvest.VectorStore = (*LoggingVectorStore)(nil)
)

// LoggingEmbedder wraps an Embedder with debug logging.
type LoggingEmbedder struct {
	next   docharvest.Embedder
	logger *slog.Logger
}

// NewLoggingEmbedder creates a new LoggingEmbedder.
func NewLoggingEmbedder(next docharvest.Embedder, logger *slog.Logger) *LoggingEmbedder {
	return &LoggingEmbedder{next: next, logger: logger}
}

// Embed delegates to the wrapped embedder and logs the batch.
func (e *LoggingEmbedder) Embed(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	defer func(begin time.Time) {
		e.logger.Debug("embed",
			"texts", len(texts),
			"vectors", len(vectors),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.Embed(ctx, texts)
}

// Dimensions delegates to the wrapped embedder.
func (e *LoggingEmbedder) Dimensions() int {
	return e.next.Dimensions()
}

// LoggingVectorStore wraps a VectorStore with logging of every operation.
type LoggingVectorStore struct {
	next   docharvest.VectorStore
	logger *slog.Logger
}

// NewLoggingVectorStore creates a new LoggingVectorStore.
func NewLoggingVectorStore(next docharvest.VectorStore, logger *slog.Logger) *LoggingVectorStore {
	return &LoggingVectorStore{next: next, logger: logger}
}

func (s *LoggingVectorStore) EnsureIndex(ctx context.Context, spec docharvest.IndexSpec) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("ensure index",
			"index", spec.Name,
			"dimension", spec.Dimension,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.EnsureIndex(ctx, spec)
}

func (s *LoggingVectorStore) Upsert(ctx context.Context, index string, records []*docharvest.VectorRecord) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("upsert",
			"index", index,
			"records", len(records),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Upsert(ctx, index, records)
}

func (s *LoggingVectorStore) Query(ctx context.Context, index string, q docharvest.VectorQuery) (matches []docharvest.VectorMatch, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("query",
			"index", index,
			"topK", q.TopK,
			"matches", len(matches),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Query(ctx, index, q)
}

func (s *LoggingVectorStore) Delete(ctx context.Context, index string, ids []string) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("delete",
			"index", index,
			"ids", len(ids),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Delete(ctx, index, ids)
}

func (s *LoggingVectorStore) Rebuild(ctx context.Context, spec docharvest.IndexSpec) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("rebuild index",
			"index", spec.Name,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Rebuild(ctx, spec)
}

func (s *LoggingVectorStore) Stats(ctx context.Context, index string) (*docharvest.IndexStats, error) {
	return s.next.Stats(ctx, index)
}

func (s *LoggingVectorStore) Close() error {
	return s.next.Close()
}

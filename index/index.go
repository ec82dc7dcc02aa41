// Package index stores fragments in a vector store and queries them by text.
package index

import (
	"context"
	"io"
	"log/slog"
	"slices"

	"github.com/fwojciec/docharvest"
)

// DefaultSubBatchSize is the number of fragments embedded per call. It must
// stay below the processor's flush size.
const DefaultSubBatchSize = 20

var _ docharvest.ChunkIndex = (*Index)(nil)

// Index implements docharvest.ChunkIndex over a VectorStore and an Embedder.
type Index struct {
	store    docharvest.VectorStore
	embedder docharvest.Embedder

	Spec         docharvest.IndexSpec
	SubBatchSize int
	Retry        docharvest.RetryPolicy
	Logger       *slog.Logger
}

// NewIndex returns an Index over store using the default index name,
// dimension and cosine metric.
func NewIndex(store docharvest.VectorStore, embedder docharvest.Embedder) *Index {
	return &Index{
		store:    store,
		embedder: embedder,
		Spec: docharvest.IndexSpec{
			Name:      docharvest.DefaultIndexName,
			Dimension: docharvest.DefaultDimension,
			Metric:    docharvest.MetricCosine,
		},
		SubBatchSize: DefaultSubBatchSize,
		Retry:        docharvest.DefaultRetryPolicy(),
	}
}

func (ix *Index) logger() *slog.Logger {
	if ix.Logger != nil {
		return ix.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Initialize opens or creates the index. It is safe to call repeatedly.
func (ix *Index) Initialize(ctx context.Context) error {
	if dim := ix.embedder.Dimensions(); dim != ix.Spec.Dimension {
		return docharvest.Errorf(docharvest.ECONFIG, "embedder produces %d-dimensional vectors, index %q expects %d", dim, ix.Spec.Name, ix.Spec.Dimension)
	}
	return ix.store.EnsureIndex(ctx, ix.Spec)
}

// StoreDocuments embeds and upserts chunks in sub-batches. A sub-batch that
// fails to embed is retried one fragment at a time; a failed bulk upsert is
// retried one record at a time. Fragments that still fail are counted.
func (ix *Index) StoreDocuments(ctx context.Context, chunks []*docharvest.Chunk) (docharvest.StoreResult, error) {
	var res docharvest.StoreResult
	size := ix.SubBatchSize
	if size <= 0 {
		size = DefaultSubBatchSize
	}

	for batch := range slices.Chunk(chunks, size) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		valid := make([]*docharvest.Chunk, 0, len(batch))
		for _, c := range batch {
			if c == nil || c.Validate() != nil {
				res.Failed++
				continue
			}
			valid = append(valid, c)
		}

		records, failed := ix.embed(ctx, valid)
		res.Failed += failed
		stored, failed := ix.upsert(ctx, records)
		res.Stored += stored
		res.Failed += failed
	}
	return res, ctx.Err()
}

// embed returns a record per fragment that could be embedded and the
// number that could not.
func (ix *Index) embed(ctx context.Context, chunks []*docharvest.Chunk) ([]*docharvest.VectorRecord, int) {
	if len(chunks) == 0 {
		return nil, 0
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vecs, err := docharvest.Retry(ctx, ix.Retry, func(ctx context.Context) ([][]float32, error) {
		return ix.embedder.Embed(ctx, texts)
	})
	if err == nil && len(vecs) == len(chunks) {
		records := make([]*docharvest.VectorRecord, len(chunks))
		for i, c := range chunks {
			records[i] = record(c, vecs[i])
		}
		return records, 0
	}
	if ctx.Err() != nil {
		return nil, len(chunks)
	}
	ix.logger().Warn("batch embedding failed, embedding one at a time", "chunks", len(chunks), "error", err)

	var records []*docharvest.VectorRecord
	failed := 0
	for _, c := range chunks {
		vecs, err := docharvest.Retry(ctx, ix.Retry, func(ctx context.Context) ([][]float32, error) {
			return ix.embedder.Embed(ctx, []string{c.Content})
		})
		if err != nil || len(vecs) != 1 {
			ix.logger().Warn("embedding failed", "chunk", c.ID, "error", err)
			failed++
			continue
		}
		records = append(records, record(c, vecs[0]))
	}
	return records, failed
}

func (ix *Index) upsert(ctx context.Context, records []*docharvest.VectorRecord) (stored, failed int) {
	if len(records) == 0 {
		return 0, 0
	}
	_, err := docharvest.Retry(ctx, ix.Retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, ix.store.Upsert(ctx, ix.Spec.Name, records)
	})
	if err == nil {
		return len(records), 0
	}
	if ctx.Err() != nil {
		return 0, len(records)
	}
	ix.logger().Warn("bulk upsert failed, storing one at a time", "records", len(records), "error", err)

	for _, r := range records {
		if err := ix.store.Upsert(ctx, ix.Spec.Name, []*docharvest.VectorRecord{r}); err != nil {
			ix.logger().Warn("upsert failed", "chunk", r.ID, "error", err)
			failed++
			continue
		}
		stored++
	}
	return stored, failed
}

func record(c *docharvest.Chunk, vec []float32) *docharvest.VectorRecord {
	return &docharvest.VectorRecord{ID: c.ID, Vector: vec, Metadata: docharvest.RecordMetadata(c)}
}

// QueryByText embeds text and returns the best-matching fragments.
func (ix *Index) QueryByText(ctx context.Context, text string, opts docharvest.QueryOptions) ([]docharvest.SearchResult, error) {
	if text == "" {
		return nil, docharvest.Errorf(docharvest.EINVALID, "query text required")
	}
	if opts.TopK <= 0 {
		opts.TopK = docharvest.DefaultTopK
	}

	vecs, err := docharvest.Retry(ctx, ix.Retry, func(ctx context.Context) ([][]float32, error) {
		return ix.embedder.Embed(ctx, []string{text})
	})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, docharvest.Errorf(docharvest.EEXTERNAL, "embedder returned %d vectors for one query", len(vecs))
	}

	matches, err := ix.store.Query(ctx, ix.Spec.Name, docharvest.VectorQuery{
		Vector:   vecs[0],
		TopK:     opts.TopK,
		MinScore: opts.MinScore,
		Filter:   opts.Filter,
	})
	if err != nil {
		return nil, err
	}

	results := make([]docharvest.SearchResult, len(matches))
	for i, m := range matches {
		results[i] = docharvest.SearchResult{Chunk: docharvest.ChunkFromRecord(m.ID, m.Metadata), Score: m.Score}
	}
	return results, nil
}

// DeleteDocuments removes fragments by ID. A lone DeleteAllSentinel
// rebuilds the index empty. A failed bulk delete is retried one ID at a
// time and the last failure is returned.
func (ix *Index) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) == 1 && ids[0] == docharvest.DeleteAllSentinel {
		return ix.store.Rebuild(ctx, ix.Spec)
	}

	err := ix.store.Delete(ctx, ix.Spec.Name, ids)
	if err == nil || ctx.Err() != nil {
		return err
	}
	ix.logger().Warn("bulk delete failed, deleting one at a time", "ids", len(ids), "error", err)

	var lastErr error
	for _, id := range ids {
		if err := ix.store.Delete(ctx, ix.Spec.Name, []string{id}); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Stats describes the index.
func (ix *Index) Stats(ctx context.Context) (*docharvest.IndexStats, error) {
	return ix.store.Stats(ctx, ix.Spec.Name)
}

// Close releases the vector store.
func (ix *Index) Close() error {
	return ix.store.Close()
}

package docharvest_test

import (
	"math"
	"testing"
	"time"

	"github.com/fwojciec/docharvest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexSpec_Validate(t *testing.T) {
	t.Parallel()

	valid := docharvest.IndexSpec{Name: "docs", Dimension: 1536, Metric: docharvest.MetricCosine}
	require.NoError(t, valid.Validate())

	noName := valid
	noName.Name = ""
	assert.Equal(t, docharvest.EINVALID, docharvest.ErrorCode(noName.Validate()))

	noDim := valid
	noDim.Dimension = 0
	assert.Equal(t, docharvest.EINVALID, docharvest.ErrorCode(noDim.Validate()))

	euclid := valid
	euclid.Metric = "euclidean"
	assert.Equal(t, docharvest.EINVALID, docharvest.ErrorCode(euclid.Validate()))
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, docharvest.CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, docharvest.CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, docharvest.CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, docharvest.CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, docharvest.CosineSimilarity([]float32{1}, []float32{1, 1}))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	v := docharvest.Normalize([]float32{3, 4})

	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := docharvest.Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)

	var sum float64
	for _, x := range docharvest.Normalize([]float32{1, 1, 1, 1}) {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}

func TestRecordMetadata_RoundTrip(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &docharvest.Chunk{
		ID:        "id-1",
		Content:   "body",
		Title:     "Title",
		URL:       "https://example.com",
		Source:    "docs",
		Category:  docharvest.CategoryWebsite,
		CreatedAt: created,
		Metadata:  map[string]any{"page": "intro"},
	}

	got := docharvest.ChunkFromRecord("id-1", docharvest.RecordMetadata(c))

	assert.Equal(t, c, got)
}

func TestChunkFromRecord_ToleratesMissingFields(t *testing.T) {
	t.Parallel()

	got := docharvest.ChunkFromRecord("x", map[string]any{docharvest.MetaContent: "only content"})

	assert.Equal(t, "x", got.ID)
	assert.Equal(t, "only content", got.Content)
	assert.True(t, got.CreatedAt.IsZero())
	assert.Nil(t, got.Metadata)
}

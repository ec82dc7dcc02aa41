package featurehash_test

import (
	"context"
	"testing"

	"github.com/fwojciec/docharvest"
	"github.com/fwojciec/docharvest/featurehash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder_Embed(t *testing.T) {
	t.Parallel()

	e := featurehash.NewEmbedder(256)

	t.Run("is deterministic", func(t *testing.T) {
		t.Parallel()

		a, err := e.Embed(context.Background(), []string{"Configure the HTTP client"})
		require.NoError(t, err)
		b, err := e.Embed(context.Background(), []string{"configure the http client!"})
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Len(t, a[0], 256)
	})

	t.Run("scores related texts above unrelated ones", func(t *testing.T) {
		t.Parallel()

		vecs, err := e.Embed(context.Background(), []string{
			"how to configure retries for the http client",
			"configure http client retries and timeouts",
			"bananas are rich in potassium",
		})
		require.NoError(t, err)

		related := docharvest.CosineSimilarity(vecs[0], vecs[1])
		unrelated := docharvest.CosineSimilarity(vecs[0], vecs[2])
		assert.Greater(t, related, unrelated)
		assert.InDelta(t, 1.0, docharvest.CosineSimilarity(vecs[0], vecs[0]), 1e-6)
	})

	t.Run("rejects text without words", func(t *testing.T) {
		t.Parallel()

		_, err := e.Embed(context.Background(), []string{"--- !!!"})

		assert.Equal(t, docharvest.EINVALID, docharvest.ErrorCode(err))
	})

	t.Run("defaults the dimension", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, docharvest.DefaultDimension, featurehash.NewEmbedder(0).Dimensions())
	})
}

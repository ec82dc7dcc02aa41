// Package featurehash provides an offline embedder based on feature hashing.
// Similar texts share words and word pairs, so their vectors point in
// similar directions; no model or network access is required.
package featurehash

import (
	"context"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docharvest"
)

var _ docharvest.Embedder = (*Embedder)(nil)

// Embedder hashes words and adjacent word pairs into a fixed-size vector.
type Embedder struct {
	dim int
}

// NewEmbedder returns an Embedder producing vectors of length dim.
// A non-positive dim selects docharvest.DefaultDimension.
func NewEmbedder(dim int) *Embedder {
	if dim <= 0 {
		dim = docharvest.DefaultDimension
	}
	return &Embedder{dim: dim}
}

// Dimensions returns the length of the produced vectors.
func (e *Embedder) Dimensions() int {
	return e.dim
}

// Embed returns one unit-length vector per text.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		words := tokenize(text)
		if len(words) == 0 {
			return nil, docharvest.Errorf(docharvest.EINVALID, "cannot embed text without words")
		}
		out[i] = e.vector(words)
	}
	return out, nil
}

func (e *Embedder) vector(words []string) []float32 {
	v := make([]float32, e.dim)
	add := func(feature string, weight float32) {
		h := xxhash.Sum64String(feature)
		idx := int(h % uint64(e.dim))
		if h>>63 == 1 {
			weight = -weight
		}
		v[idx] += weight
	}
	for i, w := range words {
		add(w, 1)
		if i > 0 {
			add(words[i-1]+" "+w, 0.5)
		}
	}
	return docharvest.Normalize(v)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

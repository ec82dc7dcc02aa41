// Package gemini implements embedding and token counting with Google Gemini.
package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/fwojciec/docharvest"
	"google.golang.org/genai"
)

// Embedder defaults.
const (
	DefaultEmbeddingModel = "gemini-embedding-001"
	DefaultBatchSize      = 100
)

var _ docharvest.Embedder = (*Embedder)(nil)

// Models is the part of the Gemini models API the embedder uses.
// *genai.Models satisfies it.
type Models interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder implements docharvest.Embedder using Gemini embedding models.
type Embedder struct {
	models Models

	Model     string
	Dimension int

	// BatchSize is the number of texts sent per request.
	BatchSize int
}

// NewEmbedder creates an Embedder producing vectors of the default
// index dimension.
func NewEmbedder(models Models) *Embedder {
	return &Embedder{
		models:    models,
		Model:     DefaultEmbeddingModel,
		Dimension: docharvest.DefaultDimension,
		BatchSize: DefaultBatchSize,
	}
}

// Dimensions returns the length of the produced vectors.
func (e *Embedder) Dimensions() int {
	return e.Dimension
}

// Embed returns one unit-length vector per text.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	size := e.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, docharvest.Errorf(docharvest.EINVALID, "cannot embed empty text")
		}
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dim := int32(e.Dimension)
	resp, err := e.models.EmbedContent(ctx, e.Model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, classify(err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, docharvest.Errorf(docharvest.EEXTERNAL, "gemini returned %d embeddings for %d texts", got, len(texts))
	}

	vecs := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) != e.Dimension {
			return nil, docharvest.Errorf(docharvest.EEXTERNAL, "gemini returned an embedding of the wrong dimension")
		}
		vecs[i] = docharvest.Normalize(emb.Values)
	}
	return vecs, nil
}

// classify maps Gemini API failures to error codes.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if err = docharvest.ClassifyError(err); docharvest.ErrorCode(err) != docharvest.EUNKNOWN {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if code := docharvest.HTTPStatusCode(apiErr.Code); code != "" {
			return docharvest.WrapError(code, err, "gemini: %s", apiErr.Message)
		}
	}
	if strings.Contains(err.Error(), "RESOURCE_EXHAUSTED") {
		return docharvest.WrapError(docharvest.ERATELIMIT, err, "gemini rate limit exceeded")
	}
	return docharvest.WrapError(docharvest.EEXTERNAL, err, "gemini request failed")
}

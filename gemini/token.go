package gemini

import (
	"context"

	"github.com/fwojciec/docharvest"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

// DefaultTokenizerModel is the model whose tokenizer approximates
// embedding input sizes.
const DefaultTokenizerModel = "gemini-2.0-flash"

var _ docharvest.TokenCounter = (*TokenCounter)(nil)

// TokenCounter counts tokens locally with a Gemini tokenizer.
type TokenCounter struct {
	tok *tokenizer.LocalTokenizer
}

// NewTokenCounter creates a TokenCounter for model. Returns ECONFIG when
// no local tokenizer exists for it.
func NewTokenCounter(model string) (*TokenCounter, error) {
	tok, err := tokenizer.NewLocalTokenizer(model)
	if err != nil {
		return nil, docharvest.WrapError(docharvest.ECONFIG, err, "no tokenizer for model %q", model)
	}
	return &TokenCounter{tok: tok}, nil
}

// CountTokens counts the tokens of text as a single user turn.
func (tc *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	result, err := tc.tok.CountTokens([]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		return 0, docharvest.WrapError(docharvest.EINTERNAL, err, "token count failed")
	}
	return int(result.TotalTokens), nil
}

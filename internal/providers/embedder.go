package providers

import (
	"context"
	"fmt"
)

// The E5 embedding family requires a role marker on every input; passages and
// queries embed into the same space only when prefixed consistently.
const (
	passagePrefix = "passage: "
	queryPrefix   = "query: "
)

// Embedder wraps an EmbeddingProvider with the role prefixes and validates
// that the provider honors the configured dimension.
type Embedder struct {
	provider EmbeddingProvider
	dim      int
}

func NewEmbedder(p EmbeddingProvider, dim int) *Embedder {
	return &Embedder{provider: p, dim: dim}
}

// EmbedPassages embeds chunk texts for ingestion.
func (e *Embedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no passages to embed")
	}
	inputs := make([]string, 0, len(texts))
	for _, t := range texts {
		inputs = append(inputs, passagePrefix+t)
	}
	vectors, _, err := e.provider.Embed(ctx, EmbedRequest{Inputs: inputs, Dimension: e.dim})
	if err != nil {
		return nil, fmt.Errorf("embed passages: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed passages: got %d vectors for %d inputs", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if e.dim > 0 && len(v) != e.dim {
			return nil, fmt.Errorf("embed passages: vector %d has dimension %d, want %d", i, len(v), e.dim)
		}
	}
	return vectors, nil
}

// EmbedQuery embeds one natural-language query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, _, err := e.provider.Embed(ctx, EmbedRequest{Inputs: []string{queryPrefix + text}, Dimension: e.dim})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors, want 1", len(vectors))
	}
	if e.dim > 0 && len(vectors[0]) != e.dim {
		return nil, fmt.Errorf("embed query: vector has dimension %d, want %d", len(vectors[0]), e.dim)
	}
	return vectors[0], nil
}

// Package embedder provides interfaces and implementations for text embedding.
package embedder

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrEmptyText is returned when Embed is called with empty or whitespace-only text.
	ErrEmptyText = errors.New("embedder: text is empty")

	// ErrUnavailable is returned when every configured embedding backend failed.
	// Callers must retry later rather than store a garbage vector.
	ErrUnavailable = errors.New("embedder: no embedding backend available")
)

// Embedder defines the interface for text embedding services.
type Embedder interface {
	// Embed generates an embedding vector for a single text input.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for multiple text inputs.
	// Returns a slice of embeddings in the same order as the input texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimensionality of the embedding vectors.
	Dimension() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}

// ModelSlug converts a model name into an identifier safe for use in
// collection names, so that vectors from different models are never
// stored or compared in the same collection.
func ModelSlug(model string) string {
	slug := strings.ToLower(model)
	slug = strings.NewReplacer("-", "_", ".", "_", ":", "_", "/", "_").Replace(slug)
	return slug
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}

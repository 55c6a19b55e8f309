package embedder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

const (
	// DefaultOpenAIModel is the default hosted embedding model.
	DefaultOpenAIModel = "text-embedding-3-small"

	// DefaultOpenAIDimension is the default dimension for text-embedding-3-small.
	DefaultOpenAIDimension = 1536

	// DefaultOpenAITimeout bounds a single embedding API call.
	DefaultOpenAITimeout = 5 * time.Second
)

// OpenAIConfig holds configuration for the OpenAI embedder.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Dimension is the requested embedding dimension (default: 1536).
	Dimension int

	// Timeout bounds each API call (default: 5s).
	Timeout time.Duration
}

// OpenAIEmbedder implements the Embedder interface using the official OpenAI SDK.
type OpenAIEmbedder struct {
	sdk       openaisdk.Client
	model     string
	dimension int
}

// NewOpenAIEmbedder creates a new OpenAI embedder with the given configuration.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = DefaultOpenAIDimension
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultOpenAITimeout
	}

	sdk := openaisdk.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	)

	return &OpenAIEmbedder{
		sdk:       sdk,
		model:     model,
		dimension: dimension,
	}
}

// Embed generates an embedding vector for a single text input.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	resp, err := e.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(text),
		},
		Model:      openaisdk.EmbeddingModel(e.model),
		Dimensions: param.NewOpt(int64(e.dimension)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embedding: no embedding in response")
	}

	embedding := toFloat32(resp.Data[0].Embedding)
	if len(embedding) != e.dimension {
		return nil, fmt.Errorf("openai embedding: got %d dimensions, want %d", len(embedding), e.dimension)
	}

	return embedding, nil
}

// EmbedBatch generates embedding vectors for multiple text inputs in one API call.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for i, t := range texts {
		if err := validateText(t); err != nil {
			return nil, fmt.Errorf("text at index %d: %w", i, err)
		}
	}

	resp, err := e.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:      openaisdk.EmbeddingModel(e.model),
		Dimensions: param.NewOpt(int64(e.dimension)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding batch: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedding batch: got %d embeddings, want %d", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(resp.Data))
	for _, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(embeddings) {
			return nil, fmt.Errorf("openai embedding batch: index %d out of range", idx)
		}
		embeddings[idx] = toFloat32(data.Embedding)
	}

	return embeddings, nil
}

// Dimension returns the dimensionality of the embedding vectors.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// ModelName returns the name of the embedding model being used.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

// Ensure OpenAIEmbedder implements Embedder interface.
var _ Embedder = (*OpenAIEmbedder)(nil)

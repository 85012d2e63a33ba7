package embedder

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultOpenAIDimension is the dimension of text-embedding-3-small.
const DefaultOpenAIDimension = 1536

// OpenAIConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIConfig struct {
	// BaseURL overrides the API endpoint, for OpenAI-compatible
	// services. Empty means the OpenAI default.
	BaseURL string

	// APIKey authenticates requests. Local OpenAI-compatible services
	// usually accept any non-empty value.
	APIKey string

	// Model is the embedding model name.
	Model string

	// Dimension is the embedding dimension reported by Dimension().
	Dimension int
}

// OpenAIEmbedder implements Embedder against OpenAI or an
// OpenAI-compatible embeddings API.
type OpenAIEmbedder struct {
	embedder  embeddings.Embedder
	model     string
	dimension int
}

// NewOpenAIEmbedder creates an embedder backed by the OpenAI
// embeddings API.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	opts := []openai.Option{
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = DefaultOpenAIDimension
	}

	return &OpenAIEmbedder{
		embedder:  emb,
		model:     cfg.Model,
		dimension: dimension,
	}, nil
}

// Embed generates an embedding vector for a single text input.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return vector, nil
}

// EmbedBatch generates embedding vectors for multiple text inputs.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}
	return vectors, nil
}

// Dimension returns the dimensionality of the embedding vectors.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// ModelName returns the name of the embedding model being used.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Ensure OpenAIEmbedder implements Embedder.
var _ Embedder = (*OpenAIEmbedder)(nil)

package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

const (
	// DefaultOllamaBaseURL is the default Ollama API base URL.
	DefaultOllamaBaseURL = "http://localhost:11434"

	// DefaultOllamaModel is the default embedding model.
	DefaultOllamaModel = "nomic-embed-text"

	// DefaultOllamaDimension is the embedding dimension of nomic-embed-text.
	DefaultOllamaDimension = 768

	// DefaultBatchConcurrency is the default number of concurrent embedding requests.
	DefaultBatchConcurrency = 4
)

// OllamaConfig holds configuration for the Ollama embedder.
type OllamaConfig struct {
	BaseURL          string
	Model            string
	Dimension        int
	BatchConcurrency int
	HTTPClient       *http.Client
}

// OllamaEmbedder implements Embedder using Ollama's embeddings API.
type OllamaEmbedder struct {
	baseURL          string
	model            string
	dimension        int
	batchConcurrency int
	client           *http.Client
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewOllamaEmbedder creates an Ollama embedder, filling zero config
// fields with defaults.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	e := &OllamaEmbedder{
		baseURL:          cfg.BaseURL,
		model:            cfg.Model,
		dimension:        cfg.Dimension,
		batchConcurrency: cfg.BatchConcurrency,
		client:           cfg.HTTPClient,
	}
	if e.baseURL == "" {
		e.baseURL = DefaultOllamaBaseURL
	}
	if e.model == "" {
		e.model = DefaultOllamaModel
	}
	if e.dimension <= 0 {
		e.dimension = DefaultOllamaDimension
	}
	if e.batchConcurrency <= 0 {
		e.batchConcurrency = DefaultBatchConcurrency
	}
	if e.client == nil {
		e.client = http.DefaultClient
	}
	return e
}

// Embed generates an embedding vector for a single text input.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := e.baseURL + "/api/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned from ollama")
	}

	embedding := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// EmbedBatch generates embedding vectors for multiple text inputs,
// issuing requests concurrently up to the configured limit.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, e.batchConcurrency)

	for i, text := range texts {
		wg.Add(1)
		go func(idx int, t string) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				errs[idx] = ctx.Err()
				return
			}

			embedding, err := e.Embed(ctx, t)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx] = embedding
		}(i, text)
	}

	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("batch embedding failed at index %d: %w", i, err)
		}
	}
	return results, nil
}

// Dimension returns the dimensionality of the embedding vectors.
func (e *OllamaEmbedder) Dimension() int {
	return e.dimension
}

// ModelName returns the name of the embedding model being used.
func (e *OllamaEmbedder) ModelName() string {
	return e.model
}

// Ensure OllamaEmbedder implements Embedder.
var _ Embedder = (*OllamaEmbedder)(nil)

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultOllamaBaseURL is the default Ollama API endpoint.
	DefaultOllamaBaseURL = "http://localhost:11434"

	// DefaultOllamaModel is the default generation model.
	DefaultOllamaModel = "llama3.2"
)

// OllamaClient implements the LLM interface using the Ollama API.
type OllamaClient struct {
	baseURL    string
	httpClient *http.Client
	// streamClient has no timeout; streamed generation is bounded by
	// the request context instead.
	streamClient *http.Client
	model        string
}

// OllamaOption is a functional option for configuring OllamaClient.
type OllamaOption func(*OllamaClient)

// WithBaseURL sets a custom base URL for the Ollama API.
func WithBaseURL(url string) OllamaOption {
	return func(c *OllamaClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) OllamaOption {
	return func(c *OllamaClient) {
		c.httpClient = client
	}
}

// WithModel sets the default model for the client.
func WithModel(model string) OllamaOption {
	return func(c *OllamaClient) {
		c.model = model
	}
}

// NewOllamaClient creates an Ollama LLM client with the given options.
func NewOllamaClient(opts ...OllamaOption) *OllamaClient {
	c := &OllamaClient{
		baseURL: DefaultOllamaBaseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // generation can be slow
		},
		model: DefaultOllamaModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.streamClient = &http.Client{Transport: c.httpClient.Transport}
	return c
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model      string `json:"model"`
	Response   string `json:"response"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`
}

// Generate sends a prompt to Ollama and returns the complete response.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	req, err := c.buildRequest(ctx, prompt, opts, false)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return result.Response, nil
}

// GenerateStream sends a prompt to Ollama and streams response chunks
// parsed from the NDJSON response body.
func (c *OllamaClient) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan StreamChunk, error) {
	req, err := c.buildRequest(ctx, prompt, opts, true)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	chunks := make(chan StreamChunk)

	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadBytes('\n')
			if err != nil {
				if err == io.EOF {
					return
				}
				chunks <- StreamChunk{Error: fmt.Errorf("reading stream: %w", err), Done: true}
				return
			}

			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}

			var streamResp ollamaGenerateResponse
			if err := json.Unmarshal(line, &streamResp); err != nil {
				chunks <- StreamChunk{Error: fmt.Errorf("parsing stream response: %w", err), Done: true}
				return
			}

			select {
			case <-ctx.Done():
				chunks <- StreamChunk{Error: ctx.Err(), Done: true}
				return
			case chunks <- StreamChunk{Token: streamResp.Response, Done: streamResp.Done}:
			}

			if streamResp.Done {
				return
			}
		}
	}()

	return chunks, nil
}

func (c *OllamaClient) buildRequest(ctx context.Context, prompt string, opts GenerateOptions, stream bool) (*http.Request, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	reqBody := ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		System: opts.SystemPrompt,
		Stream: stream,
	}

	options := make(map[string]any)
	if opts.Temperature > 0 {
		options["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	if len(options) > 0 {
		reqBody.Options = options
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Ensure OllamaClient implements LLM.
var _ LLM = (*OllamaClient)(nil)

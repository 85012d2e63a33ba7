package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultOpenAIModel is the default chat model.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig holds configuration for the OpenAI-compatible client.
type OpenAIConfig struct {
	// BaseURL overrides the API endpoint, for OpenAI-compatible
	// services. Empty means the OpenAI default.
	BaseURL string

	// APIKey authenticates requests.
	APIKey string

	// Model is the default chat model.
	Model string
}

// OpenAIClient implements the LLM interface against OpenAI or an
// OpenAI-compatible chat completions API.
type OpenAIClient struct {
	client *openai.LLM
	model  string
}

// NewOpenAIClient creates an OpenAI-compatible chat client.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	opts := []openai.Option{
		openai.WithModel(model),
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

	return &OpenAIClient{client: client, model: model}, nil
}

// Generate sends a prompt and returns the complete response.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	response, err := c.client.GenerateContent(ctx, c.buildMessages(prompt, opts), c.buildCallOptions(opts)...)
	if err != nil {
		return "", fmt.Errorf("openai generation failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return response.Choices[0].Content, nil
}

// GenerateStream sends a prompt and streams the response through a
// channel fed by the API's streaming callback.
func (c *OpenAIClient) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan StreamChunk, error) {
	chunks := make(chan StreamChunk)

	callOpts := c.buildCallOptions(opts)
	callOpts = append(callOpts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunks <- StreamChunk{Token: string(chunk)}:
			return nil
		}
	}))

	go func() {
		defer close(chunks)

		_, err := c.client.GenerateContent(ctx, c.buildMessages(prompt, opts), callOpts...)
		if err != nil {
			select {
			case <-ctx.Done():
			case chunks <- StreamChunk{Error: fmt.Errorf("openai generation failed: %w", err), Done: true}:
			}
			return
		}

		select {
		case <-ctx.Done():
		case chunks <- StreamChunk{Done: true}:
		}
	}()

	return chunks, nil
}

func (c *OpenAIClient) buildMessages(prompt string, opts GenerateOptions) []llms.MessageContent {
	var messages []llms.MessageContent
	if opts.SystemPrompt != "" {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(opts.SystemPrompt)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(prompt)},
	})
	return messages
}

func (c *OpenAIClient) buildCallOptions(opts GenerateOptions) []llms.CallOption {
	var callOpts []llms.CallOption
	if opts.Model != "" {
		callOpts = append(callOpts, llms.WithModel(opts.Model))
	}
	if opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(float64(opts.Temperature)))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	return callOpts
}

// Ensure OpenAIClient implements LLM.
var _ LLM = (*OpenAIClient)(nil)

// Package llm provides interfaces and implementations for Large
// Language Model clients.
package llm

import "context"

// GenerateOptions configures the LLM generation request.
type GenerateOptions struct {
	// Model specifies the model to use; empty means the client default.
	Model string

	// SystemPrompt sets the system-level instructions for the model.
	SystemPrompt string

	// Temperature controls randomness in generation (0.0 = deterministic).
	Temperature float32

	// MaxTokens limits the response length; 0 means no limit.
	MaxTokens int
}

// StreamChunk represents a single chunk of streamed response.
type StreamChunk struct {
	// Token contains the generated text fragment.
	Token string

	// Done indicates whether this is the final chunk in the stream.
	Done bool

	// Error contains any error that occurred during streaming.
	Error error
}

// LLM defines the interface for Large Language Model clients.
type LLM interface {
	// Generate sends a prompt to the LLM and returns the complete
	// response. It blocks until the full response is received or an
	// error occurs.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateStream sends a prompt to the LLM and returns a channel
	// that streams response chunks. The channel is closed when
	// generation completes or an error occurs; callers should check
	// StreamChunk.Error and StreamChunk.Done.
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan StreamChunk, error)
}

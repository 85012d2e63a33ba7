// Package config loads configuration from environment variables and
// .env files.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Provider names for the embedding and generation backends.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds all configuration for the ragchat service.
type Config struct {
	// Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Provider selects the embedding/generation backend: ollama or openai.
	Provider string `env:"PROVIDER" envDefault:"ollama"`

	// Ollama
	OllamaURL            string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaEmbeddingModel string `env:"OLLAMA_EMBEDDING_MODEL" envDefault:"nomic-embed-text"`
	OllamaLLMModel       string `env:"OLLAMA_LLM_MODEL" envDefault:"llama3.2"`

	// OpenAI-compatible
	OpenAIBaseURL        string `env:"OPENAI_BASE_URL"`
	OpenAIAPIKey         string `env:"OPENAI_API_KEY"`
	OpenAIEmbeddingModel string `env:"EMBEDDING_MODEL_NAME" envDefault:"text-embedding-3-small"`
	OpenAILLMModel       string `env:"LLM_MODEL_NAME" envDefault:"gpt-4o-mini"`

	// Qdrant
	QdrantGRPCURL    string  `env:"QDRANT_GRPC_URL" envDefault:"localhost:6334"`
	QdrantCollection string  `env:"QDRANT_COLLECTION" envDefault:"passages"`
	MinScore         float64 `env:"MIN_SCORE" envDefault:"0"`

	// Retrieval defaults, overridable per request.
	EmbedQueryPrefix    string  `env:"EMBED_QUERY_PREFIX" envDefault:"query: "`
	DefaultVectorWeight float64 `env:"DEFAULT_VECTOR_WEIGHT" envDefault:"0.7"`
	DefaultTopK         int     `env:"DEFAULT_TOP_K" envDefault:"50"`
	DefaultContextTopN  int     `env:"DEFAULT_CONTEXT_TOP_N" envDefault:"6"`
	DefaultContextChars int     `env:"DEFAULT_CONTEXT_CHARS" envDefault:"2400"`

	// Generation
	SystemPrompt string  `env:"SYSTEM_PROMPT" envDefault:"You are a retrieval-grounded assistant. Answer concisely from the provided context, admit when the context does not cover the question, and cite your sources."`
	Temperature  float64 `env:"TEMPERATURE" envDefault:"0.2"`
	MaxTokens    int     `env:"MAX_TOKENS" envDefault:"2048"`
}

// Load reads configuration from a .env file (if present) and the
// environment, then normalizes the tunable retrieval knobs.
func Load() (*Config, error) {
	// Ignore a missing .env file
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize clamps the UI-tunable knobs into sane ranges rather than
// rejecting them.
func (c *Config) normalize() {
	if c.DefaultVectorWeight < 0 {
		c.DefaultVectorWeight = 0
	}
	if c.DefaultVectorWeight > 1 {
		c.DefaultVectorWeight = 1
	}
	if c.DefaultTopK < 1 {
		c.DefaultTopK = 1
	}
	if c.DefaultContextTopN < 1 {
		c.DefaultContextTopN = 1
	}
	if c.DefaultContextChars < 1 {
		c.DefaultContextChars = 1
	}
}

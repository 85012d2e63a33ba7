package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ragchat/internal/config"
	"ragchat/internal/embedder"
	"ragchat/internal/llm"
	"ragchat/internal/memory"
	"ragchat/internal/pipeline"
	"ragchat/internal/retriever"
	"ragchat/internal/server"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting ragchat",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
		"provider", cfg.Provider,
	)

	ret, err := retriever.NewQdrantRetriever(retriever.QdrantConfig{
		Addr:       cfg.QdrantGRPCURL,
		Collection: cfg.QdrantCollection,
		MinScore:   float32(cfg.MinScore),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	defer ret.Close()
	slog.Info("connected to qdrant", "collection", cfg.QdrantCollection)

	emb, generator, err := buildProviders(cfg)
	if err != nil {
		return err
	}
	slog.Info("initialized providers", "embedding_model", emb.ModelName())

	p := pipeline.New(emb, ret,
		pipeline.WithLLM(generator),
		pipeline.WithLogger(slog.Default()),
		pipeline.WithQueryPrefix(cfg.EmbedQueryPrefix),
	)

	sessions := memory.DefaultStore()
	defer sessions.Close()

	handler := server.NewHandler(p, sessions, server.Defaults{
		VectorWeight:    cfg.DefaultVectorWeight,
		RetrieverTopK:   cfg.DefaultTopK,
		ContextTopN:     cfg.DefaultContextTopN,
		MaxContextChars: cfg.DefaultContextChars,
		SystemPrompt:    cfg.SystemPrompt,
		Temperature:     float32(cfg.Temperature),
		MaxTokens:       cfg.MaxTokens,
	}, slog.Default())

	srv := server.New(server.Config{
		Port:    cfg.HTTPPort,
		Logger:  slog.Default(),
		Handler: handler,
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildProviders wires the embedding and generation clients for the
// configured provider.
func buildProviders(cfg *config.Config) (embedder.Embedder, llm.LLM, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		emb, err := embedder.NewOpenAIEmbedder(embedder.OpenAIConfig{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIEmbeddingModel,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create openai embedder: %w", err)
		}
		generator, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAILLMModel,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return emb, generator, nil

	default:
		emb := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaEmbeddingModel,
		})
		generator := llm.NewOllamaClient(
			llm.WithBaseURL(cfg.OllamaURL),
			llm.WithModel(cfg.OllamaLLMModel),
		)
		return emb, generator, nil
	}
}

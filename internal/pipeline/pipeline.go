// Package pipeline composes hybrid retrieval: embed the query, fetch
// candidates from the vector index, rescore them lexically, fuse the
// scores, and assemble a citation-ready context window.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ragchat/internal/assembly"
	"ragchat/internal/embedder"
	"ragchat/internal/fusion"
	"ragchat/internal/lexical"
	"ragchat/internal/llm"
	"ragchat/internal/memory"
	"ragchat/internal/retriever"
	"ragchat/internal/tokenize"
)

// Options are the per-call retrieval knobs. Each call gets its own
// copy; the pipeline keeps no tunable state between calls.
type Options struct {
	// VectorWeight weighs the vector similarity score in fusion; the
	// lexical weight is derived as 1 - VectorWeight. One slider, not
	// two independent weights.
	VectorWeight float64

	// RetrieverTopK is the number of candidates requested from the
	// vector index.
	RetrieverTopK int

	// ContextTopN is the maximum number of context snippets assembled.
	ContextTopN int

	// MaxContextChars is the context character budget, counted in runes.
	MaxContextChars int

	// Filter optionally restricts retrieval by metadata.
	Filter *retriever.Filter
}

// Citation pairs a snippet's citation index with its display label.
type Citation struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Result is the assembled context for one query.
type Result struct {
	Snippets      []assembly.Snippet
	Citations     []Citation
	RetrievalTime time.Duration
}

// Answer is a generated response grounded in a Result.
type Answer struct {
	Text           string
	Snippets       []assembly.Snippet
	Citations      []Citation
	RetrievalTime  time.Duration
	GenerationTime time.Duration
}

// Pipeline orchestrates one retrieval-and-assembly pass per call.
// Safe for concurrent use: every call builds its own ephemeral lexical
// model over that call's candidates and discards it on return.
type Pipeline struct {
	embedder    embedder.Embedder
	retriever   retriever.Retriever
	llmClient   llm.LLM
	scorer      *lexical.Scorer
	logger      *slog.Logger
	queryPrefix string
}

// Option is a functional option for configuring a Pipeline.
type Option func(*Pipeline)

// WithLLM sets the generation client used by Answer.
func WithLLM(client llm.LLM) Option {
	return func(p *Pipeline) {
		p.llmClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithQueryPrefix sets a prefix prepended to the query before
// embedding, for embedding models trained with instruction prefixes.
func WithQueryPrefix(prefix string) Option {
	return func(p *Pipeline) {
		p.queryPrefix = prefix
	}
}

// WithTokenizer sets the tokenizer used for lexical scoring.
func WithTokenizer(tok *tokenize.Tokenizer) Option {
	return func(p *Pipeline) {
		p.scorer = lexical.NewScorer(tok)
	}
}

// New creates a pipeline over the given embedder and retriever.
func New(emb embedder.Embedder, ret retriever.Retriever, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder:  emb,
		retriever: ret,
		scorer:    lexical.NewScorer(nil),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Retrieve runs the full retrieval pass for query and returns the
// assembled context. Retriever failures abort the call; an empty
// candidate set is not an error and yields an empty context.
func (p *Pipeline) Retrieve(ctx context.Context, query string, opts Options) (*Result, error) {
	start := time.Now()
	opts = clamp(opts)
	lexicalWeight := 1 - opts.VectorWeight

	vector, err := p.embedder.Embed(ctx, p.queryPrefix+query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidates, err := p.retriever.Query(ctx, vector, opts.RetrieverTopK, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("vector retrieval failed: %w", err)
	}

	docs := make([]lexical.Document, len(candidates))
	for i, c := range candidates {
		docs[i] = lexical.Document{ID: c.ID, Text: lexical.CandidateText(c.Metadata)}
	}
	lexScores := p.scorer.Score(query, docs)

	ranked := fusion.Fuse(candidates, lexScores, opts.VectorWeight, lexicalWeight)
	snippets := assembly.Assemble(ranked, opts.ContextTopN, opts.MaxContextChars)

	result := &Result{
		Snippets:      snippets,
		Citations:     Citations(snippets),
		RetrievalTime: time.Since(start),
	}

	p.logger.Debug("retrieval completed",
		"candidates", len(candidates),
		"snippets", len(snippets),
		"vector_weight", opts.VectorWeight,
		"duration_ms", result.RetrievalTime.Milliseconds(),
	)

	return result, nil
}

// Answer retrieves context for query and generates a grounded answer,
// citing sources by their snippet indices. Requires an LLM client.
func (p *Pipeline) Answer(ctx context.Context, query string, history []memory.Message, opts Options, gen llm.GenerateOptions) (*Answer, error) {
	if p.llmClient == nil {
		return nil, fmt.Errorf("no LLM client configured")
	}

	result, err := p.Retrieve(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(query, result.Snippets, result.Citations, history)

	genStart := time.Now()
	text, err := p.llmClient.Generate(ctx, prompt, gen)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &Answer{
		Text:           text,
		Snippets:       result.Snippets,
		Citations:      result.Citations,
		RetrievalTime:  result.RetrievalTime,
		GenerationTime: time.Since(genStart),
	}, nil
}

// clamp applies defensive minimums to caller-supplied knobs. These are
// UI-tunable values, not protocol fields, so out-of-range input is
// corrected rather than rejected.
func clamp(opts Options) Options {
	if opts.RetrieverTopK < 1 {
		opts.RetrieverTopK = 1
	}
	if opts.ContextTopN < 1 {
		opts.ContextTopN = 1
	}
	if opts.MaxContextChars < 0 {
		opts.MaxContextChars = 0
	}
	return opts
}

package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"ragchat/internal/assembly"
	"ragchat/internal/llm"
	"ragchat/internal/memory"
	"ragchat/internal/retriever"
)

// fakeEmbedder returns a fixed vector and records the embedded text.
type fakeEmbedder struct {
	lastText string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.lastText = text
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := f.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int    { return 3 }
func (f *fakeEmbedder) ModelName() string { return "fake-embedder" }

// fakeRetriever returns preset candidates in a fixed order.
type fakeRetriever struct {
	candidates []retriever.Candidate
	err        error
	lastTopK   int
}

func (f *fakeRetriever) Query(_ context.Context, _ []float32, topK int, _ *retriever.Filter) ([]retriever.Candidate, error) {
	f.lastTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

// fakeLLM records the prompt and returns a canned answer.
type fakeLLM struct {
	lastPrompt string
	answer     string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	f.lastPrompt = prompt
	return f.answer, nil
}

func (f *fakeLLM) GenerateStream(context.Context, string, llm.GenerateOptions) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk)
	close(ch)
	return ch, nil
}

func candidate(id string, score float32, meta map[string]string) retriever.Candidate {
	return retriever.Candidate{ID: id, Score: score, Metadata: meta}
}

func defaultOptions() Options {
	return Options{
		VectorWeight:    0.7,
		RetrieverTopK:   50,
		ContextTopN:     6,
		MaxContextChars: 2400,
	}
}

func TestRetrieve_RanksByFusedScore(t *testing.T) {
	ret := &fakeRetriever{candidates: []retriever.Candidate{
		candidate("a", 0.9, map[string]string{"text_content": "cats are great pets", "title": "Cats"}),
		candidate("b", 0.5, map[string]string{"text_content": "dogs are loyal", "title": "Dogs"}),
	}}
	p := New(&fakeEmbedder{}, ret)

	result, err := p.Retrieve(context.Background(), "cats", defaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Snippets) != 2 {
		t.Fatalf("expected 2 snippets, got %d", len(result.Snippets))
	}
	if result.Snippets[0].ID != "a" || result.Snippets[1].ID != "b" {
		t.Errorf("expected order [a b], got [%s %s]", result.Snippets[0].ID, result.Snippets[1].ID)
	}
	if result.Snippets[0].CitationIndex != 1 || result.Snippets[1].CitationIndex != 2 {
		t.Errorf("expected citation indices 1 and 2, got %d and %d",
			result.Snippets[0].CitationIndex, result.Snippets[1].CitationIndex)
	}
	if result.Citations[0].Label != "Cats" {
		t.Errorf("expected title as citation label, got %q", result.Citations[0].Label)
	}
}

func TestRetrieve_Deterministic(t *testing.T) {
	ret := &fakeRetriever{candidates: []retriever.Candidate{
		candidate("a", 0.8, map[string]string{"text_content": "hybrid retrieval merges two signals"}),
		candidate("b", 0.8, map[string]string{"text_content": "vector search finds nearest passages"}),
		candidate("c", 0.6, map[string]string{"text_content": "keyword search matches exact terms"}),
	}}
	p := New(&fakeEmbedder{}, ret)
	opts := defaultOptions()

	first, err := p.Retrieve(context.Background(), "retrieval search", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		next, err := p.Retrieve(context.Background(), "retrieval search", opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(next.Snippets, first.Snippets) {
			t.Fatalf("run %d produced different snippets", i)
		}
		if !reflect.DeepEqual(next.Citations, first.Citations) {
			t.Fatalf("run %d produced different citations", i)
		}
	}
}

func TestRetrieve_EmptyQueryDegeneratesToVectorOrder(t *testing.T) {
	ret := &fakeRetriever{candidates: []retriever.Candidate{
		candidate("low", 0.2, map[string]string{"text_content": "some words"}),
		candidate("high", 0.9, map[string]string{"text_content": "other words"}),
	}}
	p := New(&fakeEmbedder{}, ret)

	result, err := p.Retrieve(context.Background(), "", defaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Snippets[0].ID != "high" || result.Snippets[1].ID != "low" {
		t.Errorf("expected pure vector order [high low], got [%s %s]",
			result.Snippets[0].ID, result.Snippets[1].ID)
	}
}

func TestRetrieve_EmptyCandidateSet(t *testing.T) {
	p := New(&fakeEmbedder{}, &fakeRetriever{})

	result, err := p.Retrieve(context.Background(), "anything", defaultOptions())
	if err != nil {
		t.Fatalf("expected no error for empty candidate set, got %v", err)
	}
	if len(result.Snippets) != 0 || len(result.Citations) != 0 {
		t.Errorf("expected empty context, got %d snippets", len(result.Snippets))
	}
}

func TestRetrieve_RetrieverFailurePropagates(t *testing.T) {
	wantErr := errors.New("index unavailable")
	p := New(&fakeEmbedder{}, &fakeRetriever{err: wantErr})

	result, err := p.Retrieve(context.Background(), "query", defaultOptions())
	if result != nil {
		t.Error("expected no partial result on retriever failure")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("expected retriever error propagated, got %v", err)
	}
}

func TestRetrieve_QueryPrefixAppliedToEmbeddingOnly(t *testing.T) {
	emb := &fakeEmbedder{}
	ret := &fakeRetriever{candidates: []retriever.Candidate{
		candidate("a", 0.9, map[string]string{"text_content": "cats are great pets"}),
	}}
	p := New(emb, ret, WithQueryPrefix("query: "))

	result, err := p.Retrieve(context.Background(), "cats", defaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.lastText != "query: cats" {
		t.Errorf("expected embedded text %q, got %q", "query: cats", emb.lastText)
	}
	// The prefix must not leak into lexical scoring or output.
	if len(result.Snippets) != 1 || result.Snippets[0].Text != "cats are great pets" {
		t.Errorf("unexpected snippets: %v", result.Snippets)
	}
}

func TestRetrieve_ClampsNonPositiveKnobs(t *testing.T) {
	ret := &fakeRetriever{candidates: []retriever.Candidate{
		candidate("a", 0.9, map[string]string{"text_content": "text"}),
	}}
	p := New(&fakeEmbedder{}, ret)

	result, err := p.Retrieve(context.Background(), "q", Options{
		VectorWeight:    0.7,
		RetrieverTopK:   0,
		ContextTopN:     -1,
		MaxContextChars: 100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ret.lastTopK != 1 {
		t.Errorf("expected topK clamped to 1, got %d", ret.lastTopK)
	}
	if len(result.Snippets) != 1 {
		t.Errorf("expected topN clamped to 1 accepted snippet, got %d", len(result.Snippets))
	}
}

func TestCitations_LabelFallbackOrder(t *testing.T) {
	snippets := []assembly.Snippet{
		{CitationIndex: 1, ID: "id1", Title: "Title", Source: "src", URL: "url"},
		{CitationIndex: 2, ID: "id2", Source: "src", URL: "url"},
		{CitationIndex: 3, ID: "id3", URL: "url"},
		{CitationIndex: 4, ID: "id4"},
	}

	citations := Citations(snippets)
	want := []string{"Title", "src", "url", "id4"}
	for i, c := range citations {
		if c.Label != want[i] {
			t.Errorf("citation %d: expected label %q, got %q", i+1, want[i], c.Label)
		}
		if c.Index != i+1 {
			t.Errorf("citation %d: expected index %d, got %d", i+1, i+1, c.Index)
		}
	}
}

func TestRenderCitationList(t *testing.T) {
	citations := []Citation{
		{Index: 1, Label: "First"},
		{Index: 2, Label: "Second"},
	}

	got := RenderCitationList(citations)
	want := "- [#1] First\n- [#2] Second\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestAnswer_PromptCarriesContextAndHistory(t *testing.T) {
	ret := &fakeRetriever{candidates: []retriever.Candidate{
		candidate("a", 0.9, map[string]string{"text_content": "cats are great pets", "title": "Cats"}),
	}}
	generator := &fakeLLM{answer: "Cats make great pets [#1]."}
	p := New(&fakeEmbedder{}, ret, WithLLM(generator))

	history := []memory.Message{
		{Role: memory.RoleUser, Content: "earlier question"},
		{Role: memory.RoleAssistant, Content: "earlier answer"},
	}

	answer, err := p.Answer(context.Background(), "are cats good pets?", history, defaultOptions(), llm.GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Text != generator.answer {
		t.Errorf("expected generated text passed through, got %q", answer.Text)
	}

	prompt := generator.lastPrompt
	for _, fragment := range []string{
		"[#1] cats are great pets",
		"- [#1] Cats",
		"are cats good pets?",
		"User: earlier question",
		"Assistant: earlier answer",
	} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("expected prompt to contain %q\nprompt:\n%s", fragment, prompt)
		}
	}
}

func TestAnswer_EmptyContextInstruction(t *testing.T) {
	generator := &fakeLLM{answer: "I don't know."}
	p := New(&fakeEmbedder{}, &fakeRetriever{}, WithLLM(generator))

	if _, err := p.Answer(context.Background(), "question", nil, defaultOptions(), llm.GenerateOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(generator.lastPrompt, "No grounding passages were found") {
		t.Errorf("expected empty-context instruction in prompt, got:\n%s", generator.lastPrompt)
	}
}

func TestAnswer_RequiresLLM(t *testing.T) {
	p := New(&fakeEmbedder{}, &fakeRetriever{})

	if _, err := p.Answer(context.Background(), "q", nil, defaultOptions(), llm.GenerateOptions{}); err == nil {
		t.Error("expected error when no LLM client is configured")
	}
}

package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ragchat/internal/assembly"
	"ragchat/internal/llm"
	"ragchat/internal/memory"
	"ragchat/internal/pipeline"
)

// historyWindow is the number of recent messages included in the
// generation prompt (5 turns).
const historyWindow = 10

// Defaults are the retrieval and generation settings applied when a
// request does not override them.
type Defaults struct {
	VectorWeight    float64
	RetrieverTopK   int
	ContextTopN     int
	MaxContextChars int
	SystemPrompt    string
	Temperature     float32
	MaxTokens       int
}

// Handler serves the retrieval and chat endpoints.
type Handler struct {
	pipeline *pipeline.Pipeline
	sessions *memory.Store
	defaults Defaults
	logger   *slog.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(p *pipeline.Pipeline, sessions *memory.Store, defaults Defaults, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		pipeline: p,
		sessions: sessions,
		defaults: defaults,
		logger:   logger,
	}
}

// tuning carries the per-request overrides of the retrieval knobs.
// Pointer fields distinguish "absent" from zero.
type tuning struct {
	VectorWeight *float64 `json:"vector_weight"`
	TopK         *int     `json:"top_k"`
	TopN         *int     `json:"top_n"`
	MaxChars     *int     `json:"max_chars"`
}

type retrieveRequest struct {
	Query string `json:"query"`
	tuning
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	tuning
}

type snippetJSON struct {
	CitationIndex int    `json:"citation_index"`
	ID            string `json:"id"`
	Title         string `json:"title,omitempty"`
	Source        string `json:"source,omitempty"`
	URL           string `json:"url,omitempty"`
	Text          string `json:"text"`
}

type retrieveResponse struct {
	Snippets        []snippetJSON       `json:"snippets"`
	Citations       []pipeline.Citation `json:"citations"`
	RetrievalTimeMs int64               `json:"retrieval_time_ms"`
}

type chatResponse struct {
	SessionID string              `json:"session_id"`
	Answer    string              `json:"answer"`
	Snippets  []snippetJSON       `json:"snippets"`
	Citations []pipeline.Citation `json:"citations"`
	Metadata  chatMetadata        `json:"metadata"`
}

type chatMetadata struct {
	RetrievalTimeMs  int64 `json:"retrieval_time_ms"`
	GenerationTimeMs int64 `json:"generation_time_ms"`
	TotalTimeMs      int64 `json:"total_time_ms"`
	SnippetCount     int   `json:"snippet_count"`
}

// Retrieve runs the retrieval pipeline without generation.
func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.pipeline.Retrieve(r.Context(), req.Query, h.options(req.tuning))
	if err != nil {
		h.logger.Error("retrieval failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, retrieveResponse{
		Snippets:        toSnippetJSON(result.Snippets),
		Citations:       result.Citations,
		RetrievalTimeMs: result.RetrievalTime.Milliseconds(),
	})
}

// Chat runs retrieval and generation for one conversation turn.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history := h.sessions.RecentHistory(sessionID, historyWindow)

	answer, err := h.pipeline.Answer(r.Context(), req.Message, history, h.options(req.tuning), llm.GenerateOptions{
		SystemPrompt: h.defaults.SystemPrompt,
		Temperature:  h.defaults.Temperature,
		MaxTokens:    h.defaults.MaxTokens,
	})
	if err != nil {
		h.logger.Error("chat turn failed", "error", err, "session_id", sessionID)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.sessions.AddUserMessage(sessionID, req.Message)
	h.sessions.AddAssistantMessage(sessionID, answer.Text)

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: sessionID,
		Answer:    answer.Text,
		Snippets:  toSnippetJSON(answer.Snippets),
		Citations: answer.Citations,
		Metadata: chatMetadata{
			RetrievalTimeMs:  answer.RetrievalTime.Milliseconds(),
			GenerationTimeMs: answer.GenerationTime.Milliseconds(),
			TotalTimeMs:      time.Since(start).Milliseconds(),
			SnippetCount:     len(answer.Snippets),
		},
	})
}

// ClearSession drops a session's conversation history.
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}
	h.sessions.ClearSession(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// options merges request overrides onto the configured defaults and
// clamps them into valid ranges.
func (h *Handler) options(t tuning) pipeline.Options {
	opts := pipeline.Options{
		VectorWeight:    h.defaults.VectorWeight,
		RetrieverTopK:   h.defaults.RetrieverTopK,
		ContextTopN:     h.defaults.ContextTopN,
		MaxContextChars: h.defaults.MaxContextChars,
	}

	if t.VectorWeight != nil {
		opts.VectorWeight = *t.VectorWeight
	}
	if t.TopK != nil && *t.TopK > 0 {
		opts.RetrieverTopK = *t.TopK
	}
	if t.TopN != nil && *t.TopN > 0 {
		opts.ContextTopN = *t.TopN
	}
	if t.MaxChars != nil && *t.MaxChars > 0 {
		opts.MaxContextChars = *t.MaxChars
	}

	if opts.VectorWeight < 0 {
		opts.VectorWeight = 0
	}
	if opts.VectorWeight > 1 {
		opts.VectorWeight = 1
	}
	return opts
}

func toSnippetJSON(snippets []assembly.Snippet) []snippetJSON {
	out := make([]snippetJSON, len(snippets))
	for i, s := range snippets {
		out[i] = snippetJSON{
			CitationIndex: s.CitationIndex,
			ID:            s.ID,
			Title:         s.Title,
			Source:        s.Source,
			URL:           s.URL,
			Text:          s.Text,
		}
	}
	return out
}

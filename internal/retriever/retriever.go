// Package retriever defines the contract for the external vector index
// and the candidate passages it returns.
package retriever

import "context"

// Metadata keys the pipeline understands. All are optional; missing
// keys read as empty strings.
const (
	MetaTitle    = "title"
	MetaSource   = "source"
	MetaURL      = "url"
	MetaText     = "text_content"
	MetaKeywords = "keywords"
)

// Candidate is one passage returned by the vector index. The score is
// the index's similarity signal and carries no normalization guarantee;
// it is treated as an opaque ordering signal. Candidates are built
// fresh per query and never mutated.
type Candidate struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Meta returns the metadata value for key, or "" when absent.
func (c Candidate) Meta(key string) string {
	return c.Metadata[key]
}

// Filter restricts a query to candidates whose metadata matches every
// listed key/value pair exactly.
type Filter struct {
	Must map[string]string
}

// Retriever is the query-side contract of the external vector index.
// Implementations must return results in a stable order for identical
// inputs against unchanged index state; downstream tie-breaking depends
// on it.
type Retriever interface {
	Query(ctx context.Context, vector []float32, topK int, filter *Filter) ([]Candidate, error)
}

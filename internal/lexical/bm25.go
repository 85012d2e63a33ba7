// Package lexical computes keyword relevance scores for retrieval
// candidates using BM25 Okapi.
//
// The ranking model is rebuilt from scratch over each call's candidate
// set and discarded on return; nothing is shared across calls. Scores
// are normalized by the call's own maximum raw score, so they lie in
// [0,1] but are only comparable within a single call, not across
// queries or candidate sets.
package lexical

import (
	"math"

	"ragchat/internal/tokenize"
)

const (
	defaultK1      = 1.5
	defaultB       = 0.75
	defaultEpsilon = 0.25
)

// Document is one candidate's lexical text, keyed by the candidate ID.
type Document struct {
	ID   string
	Text string
}

// CandidateText selects the lexical document text from candidate
// metadata: text_content when present, otherwise title and keywords
// joined by a newline. Missing fields read as empty strings; the result
// may be empty, which scores 0.
func CandidateText(meta map[string]string) string {
	if text := meta["text_content"]; text != "" {
		return text
	}
	title := meta["title"]
	keywords := meta["keywords"]
	if title == "" && keywords == "" {
		return ""
	}
	return title + "\n" + keywords
}

// Scorer scores candidate documents against a query with BM25 Okapi.
// The zero values of k1, b and epsilon are replaced by the usual Okapi
// defaults (1.5, 0.75, 0.25).
type Scorer struct {
	tok     *tokenize.Tokenizer
	k1      float64
	b       float64
	epsilon float64
}

// NewScorer creates a scorer using the given tokenizer. A nil tokenizer
// falls back to tokenize.Default.
func NewScorer(tok *tokenize.Tokenizer) *Scorer {
	if tok == nil {
		tok = tokenize.Default()
	}
	return &Scorer{
		tok:     tok,
		k1:      defaultK1,
		b:       defaultB,
		epsilon: defaultEpsilon,
	}
}

// Score returns a normalized score in [0,1] per document ID. An empty
// query yields 0 for every document without building the model; an
// empty document set yields an empty map. When the maximum raw score is
// 0 every normalized score is 0.
func (s *Scorer) Score(query string, docs []Document) map[string]float64 {
	if len(docs) == 0 {
		return map[string]float64{}
	}

	scores := make(map[string]float64, len(docs))

	queryTokens := s.tok.Tokenize(query)
	if len(queryTokens) == 0 {
		for _, d := range docs {
			scores[d.ID] = 0
		}
		return scores
	}

	raw := s.rawScores(queryTokens, docs)

	var maxRaw float64
	for _, r := range raw {
		if r > maxRaw {
			maxRaw = r
		}
	}

	for i, d := range docs {
		if maxRaw > 0 {
			scores[d.ID] = raw[i] / maxRaw
		} else {
			scores[d.ID] = 0
		}
	}
	return scores
}

// rawScores builds the ephemeral BM25 model over docs and scores the
// query tokens against every document.
func (s *Scorer) rawScores(queryTokens []string, docs []Document) []float64 {
	n := len(docs)
	termFreqs := make([]map[string]int, n)
	docLens := make([]int, n)
	docFreq := make(map[string]int)

	var totalLen int
	for i, d := range docs {
		tokens := s.tok.Tokenize(d.Text)
		freqs := make(map[string]int, len(tokens))
		for _, tk := range tokens {
			freqs[tk]++
		}
		termFreqs[i] = freqs
		docLens[i] = len(tokens)
		totalLen += len(tokens)
		for tk := range freqs {
			docFreq[tk]++
		}
	}

	idf := s.inverseDocFreqs(docFreq, n)

	avgLen := float64(totalLen) / float64(n)
	raw := make([]float64, n)
	if avgLen == 0 {
		// every document tokenized to nothing
		return raw
	}

	for i := range docs {
		lenNorm := s.k1 * (1 - s.b + s.b*float64(docLens[i])/avgLen)
		var score float64
		for _, tk := range queryTokens {
			tf := float64(termFreqs[i][tk])
			if tf == 0 {
				continue
			}
			score += idf[tk] * (tf * (s.k1 + 1)) / (tf + lenNorm)
		}
		raw[i] = score
	}
	return raw
}

// inverseDocFreqs computes the Okapi IDF per term. Terms occurring in
// more than half the documents get a negative IDF; those are floored to
// epsilon times the average IDF so common terms still contribute a
// small positive weight.
func (s *Scorer) inverseDocFreqs(docFreq map[string]int, n int) map[string]float64 {
	idf := make(map[string]float64, len(docFreq))
	var sum float64
	var negative []string

	for term, df := range docFreq {
		v := math.Log(float64(n)-float64(df)+0.5) - math.Log(float64(df)+0.5)
		idf[term] = v
		sum += v
		if v < 0 {
			negative = append(negative, term)
		}
	}

	if len(idf) > 0 {
		floor := s.epsilon * (sum / float64(len(idf)))
		for _, term := range negative {
			idf[term] = floor
		}
	}
	return idf
}

// Package fusion merges vector similarity and lexical relevance into a
// single ranking.
package fusion

import (
	"sort"

	"ragchat/internal/retriever"
)

// ScoredCandidate is a candidate augmented with its lexical score and
// the fused ranking score.
type ScoredCandidate struct {
	retriever.Candidate

	// LexicalScore is normalized to [0,1] within the invoking call.
	LexicalScore float64

	// FusedScore is vectorWeight*Score + lexicalWeight*LexicalScore.
	FusedScore float64
}

// Fuse combines each candidate's vector score with its lexical score
// under the given weights and returns the candidates sorted by fused
// score descending. Candidates missing from the lexical mapping score 0
// lexically. The sort is stable: equal fused scores keep the
// candidates' original retriever order, so repeated identical queries
// produce identical rankings. Weights are used as given; validating
// them is the caller's concern.
func Fuse(candidates []retriever.Candidate, lexical map[string]float64, vectorWeight, lexicalWeight float64) []ScoredCandidate {
	scored := make([]ScoredCandidate, len(candidates))
	for i, c := range candidates {
		lex := lexical[c.ID]
		scored[i] = ScoredCandidate{
			Candidate:    c,
			LexicalScore: lex,
			FusedScore:   vectorWeight*float64(c.Score) + lexicalWeight*lex,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FusedScore > scored[j].FusedScore
	})

	return scored
}

// Package assembly selects the context snippets sent to the language
// model from a fused ranking, under a strict character budget.
package assembly

import (
	"unicode/utf8"

	"ragchat/internal/fusion"
	"ragchat/internal/retriever"
)

// overfetchFactor widens the selection window past topN so candidates
// skipped for emptiness or budget still leave enough to choose from,
// without scanning the whole ranking.
const overfetchFactor = 3

// Snippet is one citation-ready context unit. CitationIndex is 1-based
// and matches the order snippets appear in the prompt.
type Snippet struct {
	CitationIndex int
	ID            string
	Title         string
	Source        string
	URL           string
	Text          string
}

// Assemble walks the fused ranking in score order and greedily accepts
// up to topN snippets whose combined length stays within maxChars,
// counted in runes.
//
// A candidate's display text is its text_content, else its title; a
// candidate with neither is skipped. A candidate whose text would
// overflow the remaining budget is skipped in favor of the next one,
// never truncated. Selection stops when topN snippets are accepted or
// the topN*overfetchFactor window is exhausted, so fewer than topN
// snippets is a normal outcome, including zero.
func Assemble(ranked []fusion.ScoredCandidate, topN, maxChars int) []Snippet {
	if topN < 1 {
		topN = 1
	}

	window := topN * overfetchFactor
	if window > len(ranked) {
		window = len(ranked)
	}

	var snippets []Snippet
	used := 0

	for _, c := range ranked[:window] {
		text := c.Meta(retriever.MetaText)
		if text == "" {
			text = c.Meta(retriever.MetaTitle)
		}
		if text == "" {
			continue // nothing citable
		}

		length := utf8.RuneCountInString(text)
		if used+length > maxChars {
			continue
		}

		snippets = append(snippets, Snippet{
			CitationIndex: len(snippets) + 1,
			ID:            c.ID,
			Title:         c.Meta(retriever.MetaTitle),
			Source:        c.Meta(retriever.MetaSource),
			URL:           c.Meta(retriever.MetaURL),
			Text:          text,
		})
		used += length

		if len(snippets) >= topN {
			break
		}
	}

	return snippets
}

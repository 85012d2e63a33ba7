package pipeline

import (
	"fmt"
	"strings"

	"ragchat/internal/assembly"
	"ragchat/internal/memory"
)

// Citations derives the citation list for assembled snippets. The
// display label is the first non-empty of title, source, url, and the
// raw candidate ID.
func Citations(snippets []assembly.Snippet) []Citation {
	citations := make([]Citation, len(snippets))
	for i, s := range snippets {
		citations[i] = Citation{Index: s.CitationIndex, Label: citationLabel(s)}
	}
	return citations
}

func citationLabel(s assembly.Snippet) string {
	switch {
	case s.Title != "":
		return s.Title
	case s.Source != "":
		return s.Source
	case s.URL != "":
		return s.URL
	default:
		return s.ID
	}
}

// RenderCitationList renders citations as a bulleted list, one
// "- [#i] label" line per citation.
func RenderCitationList(citations []Citation) string {
	var sb strings.Builder
	for _, c := range citations {
		fmt.Fprintf(&sb, "- [#%d] %s\n", c.Index, c.Label)
	}
	return sb.String()
}

// buildPrompt constructs the generation prompt: conversation history,
// enumerated context blocks, the source list, and the question. Snippet
// and citation numbering in the prompt must match the emitted result so
// the model's citations line up with what the caller displays.
func buildPrompt(query string, snippets []assembly.Snippet, citations []Citation, history []memory.Message) string {
	var sb strings.Builder

	if len(history) > 0 {
		sb.WriteString("## Conversation History\n")
		sb.WriteString(memory.FormatForPrompt(history))
		sb.WriteString("\n")
	}

	if len(snippets) == 0 {
		sb.WriteString("No grounding passages were found for this question. ")
		sb.WriteString("Say so honestly instead of guessing.\n\n")
	} else {
		sb.WriteString("## Context\n")
		for _, s := range snippets {
			fmt.Fprintf(&sb, "[#%d] %s\n\n", s.CitationIndex, s.Text)
		}
		sb.WriteString("## Sources\n")
		sb.WriteString(RenderCitationList(citations))
		sb.WriteString("\n")
	}

	sb.WriteString("## Question\n")
	sb.WriteString(query)
	sb.WriteString("\n\n")
	sb.WriteString("Answer using the context above. Cite supporting sources as [#n] ")
	sb.WriteString("and finish with a source list drawn from the sources section.\n")

	return sb.String()
}

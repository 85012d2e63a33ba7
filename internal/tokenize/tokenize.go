// Package tokenize splits free text into lowercase lexical tokens for
// keyword scoring.
package tokenize

// RunePredicate reports whether a rune belongs to the token alphabet in
// addition to ASCII letters and digits.
type RunePredicate func(r rune) bool

// Hangul matches precomposed Hangul syllables (U+AC00..U+D7A3).
func Hangul(r rune) bool {
	return r >= 0xAC00 && r <= 0xD7A3
}

// Tokenizer extracts maximal runs of ASCII letters, digits, and runes
// accepted by an optional extra predicate. Letters are folded to
// lowercase; everything else is a separator and never becomes a token.
type Tokenizer struct {
	extra RunePredicate
}

// New creates a tokenizer with the given extra rune predicate. A nil
// predicate restricts tokens to ASCII letters and digits.
func New(extra RunePredicate) *Tokenizer {
	return &Tokenizer{extra: extra}
}

// Default returns a tokenizer for the primary corpus, which mixes Latin
// text and numbers with Hangul.
func Default() *Tokenizer {
	return New(Hangul)
}

// Tokenize splits s into tokens. Empty input yields no tokens. The
// output depends only on the input bytes, never on locale.
func (t *Tokenizer) Tokenize(s string) []string {
	if s == "" {
		return nil
	}

	var tokens []string
	buf := make([]rune, 0, 32)

	flush := func() {
		if len(buf) > 0 {
			tokens = append(tokens, string(buf))
			buf = buf[:0]
		}
	}

	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			// already lowercase
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
		case t.extra != nil && t.extra(r):
			// extra script rune, kept as-is
		default:
			flush()
			continue
		}
		buf = append(buf, r)
	}
	flush()

	return tokens
}

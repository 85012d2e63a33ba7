package lexical

import (
	"testing"
)

func TestScore_EmptyDocumentSet(t *testing.T) {
	s := NewScorer(nil)

	scores := s.Score("anything", nil)
	if len(scores) != 0 {
		t.Errorf("expected empty map for empty document set, got %v", scores)
	}
}

func TestScore_EmptyQuery(t *testing.T) {
	s := NewScorer(nil)
	docs := []Document{
		{ID: "a", Text: "cats are great pets"},
		{ID: "b", Text: "dogs are loyal"},
	}

	scores := s.Score("", docs)
	for id, v := range scores {
		if v != 0 {
			t.Errorf("expected 0 for %q with empty query, got %f", id, v)
		}
	}
	if len(scores) != 2 {
		t.Errorf("expected a score per document, got %d", len(scores))
	}
}

func TestScore_NormalizedBounds(t *testing.T) {
	s := NewScorer(nil)
	docs := []Document{
		{ID: "a", Text: "the quick brown fox jumps over the lazy dog"},
		{ID: "b", Text: "quick quick quick brown fox"},
		{ID: "c", Text: "an unrelated sentence about databases"},
		{ID: "d", Text: ""},
		{ID: "e", Text: "another filler passage about networking"},
	}

	scores := s.Score("quick fox", docs)
	var sawMax bool
	for id, v := range scores {
		if v < 0 || v > 1 {
			t.Errorf("score for %q out of [0,1]: %f", id, v)
		}
		if v == 1 {
			sawMax = true
		}
	}
	if !sawMax {
		t.Error("expected the best-matching document to score exactly 1 after normalization")
	}
	if scores["d"] != 0 {
		t.Errorf("expected 0 for the empty document, got %f", scores["d"])
	}
}

func TestScore_MatchRanksAboveNonMatch(t *testing.T) {
	s := NewScorer(nil)
	docs := []Document{
		{ID: "a", Text: "cats are great pets and cats purr"},
		{ID: "b", Text: "dogs are loyal"},
		{ID: "c", Text: "a treatise on compilers"},
	}

	scores := s.Score("cats", docs)
	if scores["a"] <= scores["b"] {
		t.Errorf("expected match to outrank non-match: a=%f b=%f", scores["a"], scores["b"])
	}
	if scores["a"] != 1 {
		t.Errorf("expected sole matching document to normalize to 1, got %f", scores["a"])
	}
}

func TestScore_NoTermOverlapYieldsAllZero(t *testing.T) {
	s := NewScorer(nil)
	docs := []Document{
		{ID: "a", Text: "alpha beta"},
		{ID: "b", Text: "gamma delta"},
	}

	scores := s.Score("omega", docs)
	for id, v := range scores {
		if v != 0 {
			t.Errorf("expected 0 for %q when no document matches, got %f", id, v)
		}
	}
}

func TestScore_AllDocumentsEmpty(t *testing.T) {
	s := NewScorer(nil)
	docs := []Document{
		{ID: "a", Text: ""},
		{ID: "b", Text: " ,.! "},
	}

	scores := s.Score("cats", docs)
	for id, v := range scores {
		if v != 0 {
			t.Errorf("expected 0 for %q with empty documents, got %f", id, v)
		}
	}
}

func TestScore_Hangul(t *testing.T) {
	s := NewScorer(nil)
	docs := []Document{
		{ID: "a", Text: "고양이는 훌륭한 반려동물이다"},
		{ID: "b", Text: "강아지는 충성스럽다"},
		{ID: "c", Text: "컴파일러에 대한 글"},
	}

	scores := s.Score("고양이는", docs)
	if scores["a"] != 1 {
		t.Errorf("expected Hangul match to score 1, got %f", scores["a"])
	}
	if scores["b"] != 0 || scores["c"] != 0 {
		t.Errorf("expected non-matches to score 0, got b=%f c=%f", scores["b"], scores["c"])
	}
}

func TestCandidateText(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]string
		want string
	}{
		{
			name: "text content preferred",
			meta: map[string]string{"text_content": "body", "title": "Intro", "keywords": "basics"},
			want: "body",
		},
		{
			name: "title and keywords fallback",
			meta: map[string]string{"title": "Intro", "keywords": "basics"},
			want: "Intro\nbasics",
		},
		{
			name: "title only",
			meta: map[string]string{"title": "Intro"},
			want: "Intro\n",
		},
		{
			name: "nothing usable",
			meta: map[string]string{"url": "https://example.com"},
			want: "",
		},
		{
			name: "nil metadata",
			meta: nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CandidateText(tt.meta); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

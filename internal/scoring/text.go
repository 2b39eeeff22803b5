package scoring

import (
	"strings"
	"unicode"

	"reunite.city/matcher/internal/langdetect"
)

// TextScorer compares the free text of two reports. Implementations must be
// deterministic and return values in [0,1], or nil when the signal is
// unavailable for the pair. Remote embedding backends satisfy the same
// contract.
type TextScorer interface {
	Score(a, b Subject) *float64
}

// LexicalScorer is the default TextScorer: token-set Jaccard similarity over
// normalized title and description text, with stopwords removed for the
// detected language.
type LexicalScorer struct{}

func NewLexicalScorer() *LexicalScorer {
	return &LexicalScorer{}
}

func (s *LexicalScorer) Score(a, b Subject) *float64 {
	textA := combinedText(a)
	textB := combinedText(b)
	if textA == "" || textB == "" {
		return nil
	}

	tokensA := tokenize(textA)
	tokensB := tokenize(textB)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return nil
	}

	intersection := 0
	for token := range tokensA {
		if _, ok := tokensB[token]; ok {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection
	if union == 0 {
		return nil
	}

	score := clamp01(float64(intersection) / float64(union))
	return &score
}

func combinedText(s Subject) string {
	return strings.TrimSpace(strings.TrimSpace(s.Title) + " " + strings.TrimSpace(s.Description))
}

func tokenize(text string) map[string]struct{} {
	stopwords := stopwordsFor(langdetect.DetectISO6391(text))

	tokens := map[string]struct{}{}
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len([]rune(field)) < 2 {
			continue
		}
		if _, skip := stopwords[field]; skip {
			continue
		}
		tokens[field] = struct{}{}
	}
	return tokens
}

var stopwordSets = map[string]map[string]struct{}{
	"en": toSet("the", "a", "an", "and", "or", "of", "in", "on", "at", "my",
		"it", "is", "was", "to", "with", "near", "from", "for", "this", "that",
		"lost", "found", "item", "please", "have", "has", "had"),
	"pl": toSet("i", "w", "na", "z", "do", "od", "po", "przy", "dla", "to",
		"jest", "oraz", "mój", "moja", "moje", "zgubiono", "znaleziono"),
	"de": toSet("der", "die", "das", "und", "oder", "in", "auf", "an", "bei",
		"mit", "von", "für", "ein", "eine", "ist", "war", "mein", "meine",
		"verloren", "gefunden"),
}

func stopwordsFor(isoCode string) map[string]struct{} {
	if set, ok := stopwordSets[isoCode]; ok {
		return set
	}
	return stopwordSets["en"]
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

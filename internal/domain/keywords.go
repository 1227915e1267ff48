package domain

import (
	"strings"
	"unicode"
)

// Narrative cue vocabularies scanned in chapter text
var (
	BreakthroughKeywords = []string{
		"breakthrough", "broke through", "break through", "breaking through",
		"advanced to", "ascended", "tribulation", "stepped into",
		"reached the", "condensed", "enlightenment", "bottleneck shattered",
	}

	// Injury, curse and seal cues justify a power regression
	SetbackKeywords = []string{
		"injur", "wound", "crippl", "curse", "seal", "poison",
		"backlash", "drained", "suppress", "shattered dantian", "deviation",
	}

	ResurrectionKeywords = []string{
		"resurrect", "revive", "revived", "reviving", "brought back",
		"back from the dead", "came back to life", "returned from death",
		"reincarnat", "faked his death", "faked her death", "faked their death",
		"not truly dead", "soul reassembled",
	}
)

// ContainsAny reports whether text contains any keyword (case-insensitive
// substring match; keywords may be stems)
func ContainsAny(text string, keywords []string) bool {
	_, ok := FirstMatch(text, keywords)
	return ok
}

// FirstMatch returns the first keyword found in text
func FirstMatch(text string, keywords []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// SentenceWith returns the sentence of text that contains the first matching
// keyword, trimmed. Used as justification evidence.
func SentenceWith(text string, keywords []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		idx := strings.Index(lower, kw)
		if idx < 0 {
			continue
		}
		start := strings.LastIndexAny(text[:idx], ".!?\n") + 1
		end := len(text)
		if rel := strings.IndexAny(text[idx:], ".!?\n"); rel >= 0 {
			end = idx + rel + 1
		}
		return strings.TrimSpace(text[start:end]), true
	}
	return "", false
}

// Tail returns roughly the last n characters of text, cut at a word boundary
func Tail(text string, n int) string {
	if n <= 0 || len(text) <= n {
		return text
	}
	cut := len(text) - n
	for cut < len(text) && !unicode.IsSpace(rune(text[cut])) {
		cut++
	}
	return strings.TrimSpace(text[cut:])
}

// Words splits text into lowercase word tokens, keeping inner apostrophes
// so "can't" stays one token
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

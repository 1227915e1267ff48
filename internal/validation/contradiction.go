package validation

import (
	"fmt"

	"continuity/internal/domain"
)

// lexicalPairs are opposing tokens. A rule edit that swaps one side for the
// other is reported as a possible contradiction. This is a shallow lexical
// heuristic and will miss paraphrases.
var lexicalPairs = [][2]string{
	{"can", "cannot"},
	{"can", "can't"},
	{"allows", "forbids"},
	{"allow", "forbid"},
	{"allowed", "forbidden"},
	{"possible", "impossible"},
	{"always", "never"},
	{"will", "won't"},
	{"must", "mustn't"},
}

// Contradictions lists the opposing token pairs found between an old and a
// new text
func Contradictions(oldText, newText string) []string {
	oldWords := wordSet(oldText)
	newWords := wordSet(newText)

	var found []string
	for _, p := range lexicalPairs {
		pos, neg := p[0], p[1]
		switch {
		case oldWords[pos] && newWords[neg]:
			found = append(found, fmt.Sprintf("%q became %q", pos, neg))
		case oldWords[neg] && newWords[pos]:
			found = append(found, fmt.Sprintf("%q became %q", neg, pos))
		}
	}
	return found
}

func wordSet(text string) map[string]bool {
	words := domain.Words(text)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

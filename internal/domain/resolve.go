package domain

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// FoldName normalizes a name for case-insensitive comparison.
// Casers are stateful, so each call gets its own.
func FoldName(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// SameName reports whether two names are equal ignoring case and spacing
func SameName(a, b string) bool {
	return FoldName(a) == FoldName(b)
}

// Candidate is anything the resolver can match against
type Candidate struct {
	ID   string
	Name string
}

// Resolution is the outcome of resolving a name
type Resolution struct {
	Match     *Candidate
	Fuzzy     bool        // Match came from the fuzzy fallback
	Ambiguous []Candidate // Tied candidates; Match is nil when non-empty
}

// Found reports whether the name resolved to exactly one candidate
func (r Resolution) Found() bool {
	return r.Match != nil
}

// Resolver resolves entity names: case-folded exact match first, then an
// optional fuzzy fallback that reports ambiguity instead of guessing.
type Resolver struct {
	AllowFuzzy bool
	// MinScore is the minimum fuzzy score accepted
	MinScore int
}

// ExactResolver only accepts case-insensitive exact matches
var ExactResolver = Resolver{}

// Resolve resolves name against candidates
func (r Resolver) Resolve(name string, candidates []Candidate) Resolution {
	target := FoldName(name)
	if target == "" {
		return Resolution{}
	}

	var exact []Candidate
	for _, c := range candidates {
		if FoldName(c.Name) == target {
			exact = append(exact, c)
		}
	}
	switch len(exact) {
	case 0:
	case 1:
		return Resolution{Match: &exact[0]}
	default:
		return Resolution{Ambiguous: exact}
	}

	if !r.AllowFuzzy {
		return Resolution{}
	}

	minScore := r.MinScore
	if minScore <= 0 {
		minScore = 20
	}

	type scored struct {
		c     Candidate
		score int
	}
	var hits []scored
	for _, c := range candidates {
		if s := FuzzyScore(c.Name, name); s >= minScore {
			hits = append(hits, scored{c, s})
		}
	}
	if len(hits) == 0 {
		return Resolution{}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if len(hits) > 1 && hits[0].score == hits[1].score {
		var tied []Candidate
		for _, h := range hits {
			if h.score == hits[0].score {
				tied = append(tied, h.c)
			}
		}
		return Resolution{Ambiguous: tied, Fuzzy: true}
	}
	return Resolution{Match: &hits[0].c, Fuzzy: true}
}

// FuzzyScore calculates a relevance score for how well target matches query
func FuzzyScore(target, query string) int {
	target = strings.ToLower(target)
	query = strings.ToLower(query)

	if len(query) == 0 {
		return 0
	}

	// Exact substring match ranks highest
	if strings.Contains(target, query) {
		score := 100
		if strings.HasPrefix(target, query) {
			score += 50
		}
		return score
	}

	// Fuzzy match: chars appear in order
	score := 0
	queryIdx := 0
	prevMatchIdx := -1

	for i := 0; i < len(target) && queryIdx < len(query); i++ {
		if target[i] == query[queryIdx] {
			if prevMatchIdx == i-1 {
				score += 10 // consecutive chars
			}
			if i == 0 {
				score += 15 // start of string
			}
			if i > 0 && (target[i-1] == ' ' || target[i-1] == '-' || target[i-1] == '\'') {
				score += 10 // after separator
			}
			score += 1
			prevMatchIdx = i
			queryIdx++
		}
	}

	if queryIdx == len(query) {
		return score
	}
	return 0
}

// CharacterCandidates lists a novel's characters for resolution
func CharacterCandidates(chars []Character) []Candidate {
	out := make([]Candidate, len(chars))
	for i, c := range chars {
		out[i] = Candidate{ID: c.ID, Name: c.Name}
	}
	return out
}

// MentionedIn reports whether name appears in text as a whole phrase,
// ignoring case
func MentionedIn(text, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	hay := " " + strings.Join(Words(text), " ") + " "
	needle := " " + strings.Join(Words(name), " ") + " "
	return strings.Contains(hay, needle)
}

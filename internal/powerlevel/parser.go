package powerlevel

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// SubStage is a fine rank within a stage
type SubStage string

const (
	SubStageNone    SubStage = ""
	SubStageInitial SubStage = "initial"
	SubStageEarly   SubStage = "early"
	SubStageMid     SubStage = "mid"
	SubStageLate    SubStage = "late"
	SubStagePeak    SubStage = "peak"
)

var subStageRanks = map[SubStage]int{
	SubStageNone:    0,
	SubStageInitial: 1,
	SubStageEarly:   2,
	SubStageMid:     3,
	SubStageLate:    4,
	SubStagePeak:    5,
}

// subStageVocabulary maps accepted spellings to sub-stages
var subStageVocabulary = map[string]SubStage{
	"initial":   SubStageInitial,
	"beginner":  SubStageInitial,
	"early":     SubStageEarly,
	"mid":       SubStageMid,
	"middle":    SubStageMid,
	"late":      SubStageLate,
	"advanced":  SubStageLate,
	"peak":      SubStagePeak,
	"perfected": SubStagePeak,
}

// Rank returns the tie-breaking rank of a sub-stage
func (s SubStage) Rank() int {
	return subStageRanks[s]
}

// Level is a parsed power level. Order 0 means unknown.
type Level struct {
	Raw      string
	Stage    string
	Order    int
	SubStage SubStage
	Category string
}

// Known reports whether the level matched a configured stage
func (l Level) Known() bool {
	return l.Order > 0
}

// String renders the canonical form, e.g. "Core Formation (Peak)"
func (l Level) String() string {
	if !l.Known() {
		return strings.TrimSpace(l.Raw)
	}
	if l.SubStage == SubStageNone {
		return l.Stage
	}
	sub := string(l.SubStage)
	return l.Stage + " (" + strings.ToUpper(sub[:1]) + sub[1:] + ")"
}

// Parse matches text against the category's stages using, in order:
// exact normalized match, word-boundary substring match, then an
// all-words-present match. Sub-stages are extracted from the words around
// the stage name. Unmatched text comes back with order 0.
func (s *System) Parse(text, category string) Level {
	cat := s.resolveCategory(category)
	level := Level{Raw: text, Category: cat}

	entries, ok := s.index[cat]
	if !ok {
		s.logger.Debug("unknown power category", zap.String("category", cat))
		return level
	}

	norm := normalizeText(text)
	if norm == "" {
		return level
	}

	for _, e := range entries {
		if norm == e.norm {
			level.Stage, level.Order = e.stage.Name, e.stage.Order
			return level
		}
	}

	padded := " " + norm + " "
	for _, e := range entries {
		if idx := strings.Index(padded, " "+e.norm+" "); idx >= 0 {
			rest := padded[:idx] + " " + padded[idx+len(e.norm)+2:]
			level.Stage, level.Order = e.stage.Name, e.stage.Order
			level.SubStage = extractSubStage(strings.Fields(rest))
			return level
		}
	}

	words := strings.Fields(norm)
	present := make(map[string]bool, len(words))
	for _, w := range words {
		present[w] = true
	}
	for _, e := range entries {
		if !allPresent(e.words, present) {
			continue
		}
		stageWords := make(map[string]bool, len(e.words))
		for _, w := range e.words {
			stageWords[w] = true
		}
		var rest []string
		for _, w := range words {
			if !stageWords[w] {
				rest = append(rest, w)
			}
		}
		level.Stage, level.Order = e.stage.Name, e.stage.Order
		level.SubStage = extractSubStage(rest)
		return level
	}

	return level
}

func extractSubStage(words []string) SubStage {
	for _, w := range words {
		if sub, ok := subStageVocabulary[w]; ok {
			return sub
		}
	}
	return SubStageNone
}

func allPresent(words []string, present map[string]bool) bool {
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !present[w] {
			return false
		}
	}
	return true
}

// normalizeText lowercases, replaces punctuation with spaces and collapses
// whitespace
func normalizeText(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

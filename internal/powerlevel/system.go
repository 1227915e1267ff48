// Package powerlevel makes free-text power descriptions comparable and
// validates whether a transition between two levels is narratively plausible.
//
// Free text cannot be parsed with certainty, so every function degrades to a
// conservative "cannot determine" result (order 0, comparison 0) instead of
// failing. Callers treat such results as advisory.
package powerlevel

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// System holds the configured hierarchies and progression policy
type System struct {
	hierarchies map[string]*Hierarchy
	index       map[string][]stageEntry
	policy      Policy
	category    string
	logger      *zap.Logger
}

// stageEntry caches the normalized form of a stage name
type stageEntry struct {
	stage Stage
	norm  string
	words []string
}

// Option configures a System
type Option func(*System)

// WithPolicy sets the progression policy
func WithPolicy(p Policy) Option {
	return func(s *System) {
		s.policy = p
	}
}

// WithHierarchies adds categories, replacing defaults with the same name
func WithHierarchies(hs []Hierarchy) Option {
	return func(s *System) {
		for i := range hs {
			h := hs[i]
			h.Category = strings.ToLower(strings.TrimSpace(h.Category))
			s.hierarchies[h.Category] = &h
		}
	}
}

// WithDefaultCategory sets the category used when callers pass ""
func WithDefaultCategory(category string) Option {
	return func(s *System) {
		if c := strings.ToLower(strings.TrimSpace(category)); c != "" {
			s.category = c
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *System) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSystem creates a System seeded with the embedded default hierarchies
func NewSystem(opts ...Option) *System {
	s := &System{
		hierarchies: make(map[string]*Hierarchy),
		policy:      DefaultPolicy(),
		category:    DefaultCategory,
		logger:      zap.NewNop(),
	}
	defaults := mustDefaultHierarchies()
	for i := range defaults {
		s.hierarchies[defaults[i].Category] = &defaults[i]
	}
	for _, opt := range opts {
		opt(s)
	}

	s.index = make(map[string][]stageEntry, len(s.hierarchies))
	for cat, h := range s.hierarchies {
		entries := make([]stageEntry, 0, len(h.Stages))
		for _, st := range h.Stages {
			st.Category = cat
			norm := normalizeText(st.Name)
			entries = append(entries, stageEntry{stage: st, norm: norm, words: strings.Fields(norm)})
		}
		// Longest names first so "Nascent Soul" wins over a shorter overlapping name
		sort.SliceStable(entries, func(i, j int) bool {
			return len(entries[i].norm) > len(entries[j].norm)
		})
		s.index[cat] = entries
	}
	return s
}

// Policy returns the active progression policy
func (s *System) Policy() Policy {
	return s.policy
}

// DefaultCategoryName returns the category used for empty category arguments
func (s *System) DefaultCategoryName() string {
	return s.category
}

// Categories lists configured categories in alphabetical order
func (s *System) Categories() []string {
	cats := make([]string, 0, len(s.hierarchies))
	for c := range s.hierarchies {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// Hierarchy returns the hierarchy for a category
func (s *System) Hierarchy(category string) (*Hierarchy, bool) {
	h, ok := s.hierarchies[s.resolveCategory(category)]
	return h, ok
}

func (s *System) resolveCategory(category string) string {
	if c := strings.ToLower(strings.TrimSpace(category)); c != "" {
		return c
	}
	return s.category
}

// Compare orders two levels: by stage order, then by sub-stage rank.
// Returns 0 when either side cannot be parsed; that is "cannot compare",
// not a claim of equality.
func (s *System) Compare(a, b, category string) int {
	la := s.Parse(a, category)
	lb := s.Parse(b, category)
	return CompareLevels(la, lb)
}

// CompareLevels compares two parsed levels
func CompareLevels(a, b Level) int {
	if !a.Known() || !b.Known() {
		return 0
	}
	switch {
	case a.Order < b.Order:
		return -1
	case a.Order > b.Order:
		return 1
	}
	ra, rb := a.SubStage.Rank(), b.SubStage.Rank()
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	}
	return 0
}

// StageDelta returns to.Order - from.Order; ok is false when either level
// is unknown
func (s *System) StageDelta(from, to, category string) (delta int, ok bool) {
	lf := s.Parse(from, category)
	lt := s.Parse(to, category)
	if !lf.Known() || !lt.Known() {
		return 0, false
	}
	return lt.Order - lf.Order, true
}

// NextStage returns the stage after the one level is in
func (s *System) NextStage(level, category string) (Stage, bool) {
	l := s.Parse(level, category)
	if !l.Known() {
		return Stage{}, false
	}
	h, ok := s.Hierarchy(category)
	if !ok {
		return Stage{}, false
	}
	for _, st := range h.Stages {
		if st.Order > l.Order {
			return st, true
		}
	}
	return Stage{}, false
}

// Normalize returns the canonical spelling of level, or the trimmed input
// when it cannot be parsed
func (s *System) Normalize(level, category string) string {
	return s.Parse(level, category).String()
}

// IsValid reports whether level parses to a known stage
func (s *System) IsValid(level, category string) bool {
	return s.Parse(level, category).Known()
}

package validation

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"continuity/internal/domain"
	"continuity/internal/graph"
	"continuity/internal/powerlevel"
	"continuity/internal/statetracker"
)

const (
	// DefaultStaleThreshold is how many chapters a character may go without
	// an update before it is reported as stale
	DefaultStaleThreshold = 10
	// DefaultTailLength is how much of the previous chapter is scanned for
	// character mentions
	DefaultTailLength = 2000
)

// Option configures the checkers
type Option func(*options)

type options struct {
	staleThreshold int
	tailLength     int
	logger         *zap.Logger
	now            func() time.Time
}

func defaultOptions() options {
	return options{
		staleThreshold: DefaultStaleThreshold,
		tailLength:     DefaultTailLength,
		logger:         zap.NewNop(),
		now:            time.Now,
	}
}

// WithStaleThreshold overrides the stale-context threshold
func WithStaleThreshold(chapters int) Option {
	return func(o *options) {
		if chapters > 0 {
			o.staleThreshold = chapters
		}
	}
}

// WithTailLength overrides how much previous-chapter text is scanned
func WithTailLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.tailLength = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the report timestamp source
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// PreGenerationValidator checks readiness before the next chapter is
// produced
type PreGenerationValidator struct {
	graph   *graph.Graph
	tracker *statetracker.Tracker
	levels  *powerlevel.System
	opts    options
}

// NewPreGenerationValidator creates a validator reading the given components
func NewPreGenerationValidator(g *graph.Graph, t *statetracker.Tracker, levels *powerlevel.System, opts ...Option) *PreGenerationValidator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &PreGenerationValidator{graph: g, tracker: t, levels: levels, opts: o}
}

// Validate checks the characters likely to appear in the next chapter. The
// graph must already be initialized from state.
func (v *PreGenerationValidator) Validate(state *domain.NovelState) *Report {
	upcoming := 1
	var previous *domain.Chapter
	if latest := state.LatestChapter(); latest != nil {
		upcoming = latest.Number + 1
		previous = latest
	}

	candidates := v.candidates(state, previous)
	var issues []domain.ValidationIssue
	completeness := &Completeness{
		CharactersTotal:    len(candidates),
		PowerLevelsReady:   true,
		RelationshipsReady: true,
	}

	if state.CurrentRealm() == nil {
		issues = append(issues, domain.ValidationIssue{
			Kind:          domain.IssueMissingRealm,
			Severity:      domain.SeverityCritical,
			ChapterNumber: upcoming,
			Message:       "No current realm is set",
			Suggestion:    "Select the realm the next chapter takes place in.",
			Confidence:    1.0,
		})
	}

	for i := range candidates {
		c := &candidates[i]
		ready, found := v.checkCharacter(state, c, upcoming)
		issues = append(issues, found...)
		if ready {
			completeness.CharactersReady++
		}
		for _, f := range found {
			if f.Kind == domain.IssueMissingPowerLevel {
				completeness.PowerLevelsReady = false
			}
		}
	}

	inScope := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		inScope[graph.NodeID(domain.EntityCharacter, c.ID)] = true
	}
	byNode := make(map[string]*domain.Character, len(state.Characters))
	for i := range state.Characters {
		byNode[graph.NodeID(domain.EntityCharacter, state.Characters[i].ID)] = &state.Characters[i]
	}
	for _, e := range v.graph.MissingReverseRelationships() {
		if !inScope[e.Source] && !inScope[e.Target] {
			continue
		}
		src, tgt := byNode[e.Source], byNode[e.Target]
		if src == nil || tgt == nil {
			continue
		}
		completeness.RelationshipsReady = false
		issues = append(issues, domain.ValidationIssue{
			Kind:          domain.IssueMissingReverseEdge,
			Severity:      domain.SeverityInfo,
			Entity:        domain.CharacterRef(src),
			ChapterNumber: upcoming,
			Message:       fmt.Sprintf("%s has a %q relationship with %s but not the reverse", src.Name, e.Properties.Label, tgt.Name),
			Suggestion:    fmt.Sprintf("Record how %s sees %s.", tgt.Name, src.Name),
			Confidence:    0.5,
		})
	}

	r := newReport(PhasePreGeneration, state.ID, upcoming, issues, completeness, v.opts.now())
	v.opts.logger.Info("pre-generation validation",
		zap.String("novel", state.ID),
		zap.Int("chapter", upcoming),
		zap.Bool("valid", r.Valid),
		zap.Int("score", r.Summary.OverallScore),
		zap.Int("issues", r.Summary.Total),
	)
	return r
}

// candidates returns the characters mentioned near the end of the previous
// chapter, or every protagonist when nobody is mentioned
func (v *PreGenerationValidator) candidates(state *domain.NovelState, previous *domain.Chapter) []domain.Character {
	if previous != nil {
		tail := domain.Tail(previous.Content, v.opts.tailLength)
		var mentioned []domain.Character
		for _, c := range state.Characters {
			if domain.MentionedIn(tail, c.Name) {
				mentioned = append(mentioned, c)
			}
		}
		if len(mentioned) > 0 {
			return mentioned
		}
	}
	return state.Protagonists()
}

func (v *PreGenerationValidator) checkCharacter(state *domain.NovelState, c *domain.Character, upcoming int) (ready bool, issues []domain.ValidationIssue) {
	ref := domain.CharacterRef(c)
	ready = true

	tracked := v.tracker.CurrentState(domain.EntityCharacter, c.ID) != nil
	if !tracked || !v.graph.HasCharacter(c.ID) {
		ready = false
		issues = append(issues, domain.ValidationIssue{
			Kind:          domain.IssueMissingState,
			Severity:      domain.SeverityCritical,
			Entity:        ref,
			ChapterNumber: upcoming,
			Message:       fmt.Sprintf("%s has no tracked state", c.Name),
			Suggestion:    "Reload the novel state so the character is tracked.",
			Confidence:    1.0,
		})
	}

	level, _ := v.graph.CharacterPowerLevel(c.ID)
	if domain.IsUnknownLevel(level) {
		level = c.CurrentCultivation
	}
	if domain.IsUnknownLevel(level) {
		ready = false
		issues = append(issues, domain.ValidationIssue{
			Kind:          domain.IssueMissingPowerLevel,
			Severity:      domain.SeverityWarning,
			Entity:        ref,
			ChapterNumber: upcoming,
			Message:       fmt.Sprintf("%s has no power level", c.Name),
			Suggestion:    "Set the character's current power level.",
			Confidence:    0.9,
		})
	}

	lastUpdate := c.LastUpdatedChapter
	if ch, ok := v.tracker.CurrentChapter(domain.EntityCharacter, c.ID); ok && ch > lastUpdate {
		lastUpdate = ch
	}

	if tl, ok := v.graph.PowerProgression(c.ID); ok {
		issues = append(issues, v.checkTimeline(state, c, tl, upcoming)...)
		if tl.CurrentChapter > lastUpdate {
			lastUpdate = tl.CurrentChapter
		}
	}

	if gap := upcoming - lastUpdate; lastUpdate > 0 && gap > v.opts.staleThreshold {
		issues = append(issues, domain.ValidationIssue{
			Kind:          domain.IssueStaleContext,
			Severity:      domain.SeverityInfo,
			Entity:        ref,
			ChapterNumber: upcoming,
			Message:       fmt.Sprintf("%s was last updated in chapter %d, %d chapters ago", c.Name, lastUpdate, gap),
			Suggestion:    "Review the character's state before reintroducing them.",
			Confidence:    0.6,
		})
	}
	return ready, issues
}

// checkTimeline re-validates the latest transition of the timeline and
// checks for stagnation at the current level
func (v *PreGenerationValidator) checkTimeline(state *domain.NovelState, c *domain.Character, tl graph.PowerTimeline, upcoming int) []domain.ValidationIssue {
	var issues []domain.ValidationIssue
	ref := domain.CharacterRef(c)

	if last, ok := tl.LastEvent(); ok {
		prevLevel, prevChapter := tl.LevelBefore(last.ChapterNumber)
		if !domain.IsUnknownLevel(prevLevel) {
			justified := last.Justification != ""
			res := v.levels.ValidateProgressionIn(state.PowerCategory, prevLevel, last.PowerLevel, last.ChapterNumber-prevChapter, justified)
			evidence := []string{fmt.Sprintf("chapter %d: %s -> %s (%s)", last.ChapterNumber, prevLevel, last.PowerLevel, last.Type)}
			for _, f := range res.Issues {
				issues = append(issues, progressionIssue(f, pregenSeverity(f, true), ref, upcoming, evidence))
			}
			for _, f := range res.Warnings {
				issues = append(issues, progressionIssue(f, pregenSeverity(f, false), ref, upcoming, evidence))
			}
		}
	}

	if !domain.IsUnknownLevel(tl.CurrentLevel) && tl.CurrentChapter > 0 {
		res := v.levels.ValidateProgressionIn(state.PowerCategory, tl.CurrentLevel, tl.CurrentLevel, upcoming-tl.CurrentChapter, true)
		for _, f := range res.Warnings {
			if f.Kind == powerlevel.FindingStagnation {
				issues = append(issues, progressionIssue(f, domain.SeverityWarning, ref, upcoming, nil))
			}
		}
	}
	return issues
}

// pregenSeverity maps progression findings: rule violations are critical,
// pace and justification findings are warnings
func pregenSeverity(f powerlevel.Finding, isIssue bool) domain.Severity {
	switch f.Kind {
	case powerlevel.FindingUnparseable:
		return domain.SeverityInfo
	case powerlevel.FindingMissingBreakthrough, powerlevel.FindingLargeJump, powerlevel.FindingStagnation:
		return domain.SeverityWarning
	}
	if isIssue {
		return domain.SeverityCritical
	}
	return domain.SeverityWarning
}

var findingKinds = map[powerlevel.FindingKind]domain.IssueKind{
	powerlevel.FindingRegression:          domain.IssuePowerRegression,
	powerlevel.FindingTooFast:             domain.IssueRapidProgression,
	powerlevel.FindingMissingBreakthrough: domain.IssueMissingBreakthrough,
	powerlevel.FindingLargeJump:           domain.IssueProgressionPace,
	powerlevel.FindingStagnation:          domain.IssueStagnation,
	powerlevel.FindingUnparseable:         domain.IssueUnparseablePower,
}

func progressionIssue(f powerlevel.Finding, sev domain.Severity, ref *domain.EntityRef, chapter int, evidence []string) domain.ValidationIssue {
	confidence := 0.8
	if f.Kind == powerlevel.FindingUnparseable {
		confidence = 0.3
	}
	return domain.ValidationIssue{
		Kind:          findingKinds[f.Kind],
		Severity:      sev,
		Entity:        ref,
		ChapterNumber: chapter,
		Message:       fmt.Sprintf("%s: %s", ref.Name, f.Message),
		Suggestion:    kindHints[findingKinds[f.Kind]],
		Confidence:    confidence,
		Evidence:      evidence,
	}
}

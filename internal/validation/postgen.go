package validation

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"continuity/internal/domain"
	"continuity/internal/graph"
	"continuity/internal/powerlevel"
)

// PostGenerationChecker re-validates a just-generated chapter against what
// was recorded before it
type PostGenerationChecker struct {
	graph    *graph.Graph
	levels   *powerlevel.System
	resolver domain.Resolver
	opts     options
}

// NewPostGenerationChecker creates a checker reading the given components
func NewPostGenerationChecker(g *graph.Graph, levels *powerlevel.System, opts ...Option) *PostGenerationChecker {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &PostGenerationChecker{graph: g, levels: levels, resolver: domain.ExactResolver, opts: o}
}

// Check compares the extraction of chapter with state as it was before the
// chapter. Power levels are compared with the timeline as of the previous
// chapter, so the result is the same whether or not the updater already ran.
func (c *PostGenerationChecker) Check(state *domain.NovelState, chapter domain.Chapter, payload domain.ExtractionPayload) *Report {
	var issues []domain.ValidationIssue
	candidates := domain.CharacterCandidates(state.Characters)

	for _, up := range payload.CharacterUpserts {
		res := c.resolver.Resolve(up.Name, candidates)
		if !res.Found() {
			issues = append(issues, domain.ValidationIssue{
				Kind:          domain.IssueUnresolvedCharacter,
				Severity:      domain.SeverityInfo,
				Entity:        &domain.EntityRef{Type: domain.EntityCharacter, Name: up.Name},
				ChapterNumber: chapter.Number,
				Message:       fmt.Sprintf("%s is not a tracked character", up.Name),
				Suggestion:    "Add the character to the novel state if they are new.",
				Confidence:    0.5,
			})
			continue
		}
		ch := state.Character(res.Match.ID)
		issues = append(issues, c.checkPower(state, ch, up, chapter)...)
		issues = append(issues, c.checkStatus(ch, up, chapter)...)
		issues = append(issues, c.checkRelationships(ch, up, chapter, candidates)...)
	}

	for _, up := range payload.WorldRuleUpserts {
		issues = append(issues, c.checkWorldRule(state, up, chapter)...)
	}

	r := newReport(PhasePostGeneration, state.ID, chapter.Number, issues, nil, c.opts.now())
	c.opts.logger.Info("post-generation check",
		zap.String("novel", state.ID),
		zap.Int("chapter", chapter.Number),
		zap.Bool("valid", r.Valid),
		zap.Int("score", r.Summary.OverallScore),
		zap.Int("issues", r.Summary.Total),
	)
	return r
}

func (c *PostGenerationChecker) checkPower(state *domain.NovelState, ch *domain.Character, up domain.CharacterUpsert, chapter domain.Chapter) []domain.ValidationIssue {
	reported := strings.TrimSpace(up.Set.Cultivation)
	if domain.IsUnknownLevel(reported) {
		return nil
	}

	prevLevel, prevChapter := ch.CurrentCultivation, ch.LastUpdatedChapter
	if tl, ok := c.graph.PowerProgression(ch.ID); ok {
		prevLevel, prevChapter = tl.LevelBefore(chapter.Number)
	}
	if domain.IsUnknownLevel(prevLevel) || strings.EqualFold(strings.TrimSpace(prevLevel), reported) {
		return nil
	}

	ref := domain.CharacterRef(ch)
	var issues []domain.ValidationIssue

	if c.levels.Compare(prevLevel, reported, state.PowerCategory) > 0 {
		issue := domain.ValidationIssue{
			Kind:          domain.IssuePowerRegression,
			Severity:      domain.SeverityCritical,
			Entity:        ref,
			ChapterNumber: chapter.Number,
			Message:       fmt.Sprintf("%s dropped from %s to %s", ch.Name, prevLevel, reported),
			Suggestion:    kindHints[domain.IssuePowerRegression],
			Confidence:    0.9,
		}
		if sentence, ok := domain.SentenceWith(chapter.Content, domain.SetbackKeywords); ok {
			issue.Severity = domain.SeverityWarning
			issue.Confidence = 0.6
			issue.Message += "; the chapter describes a setback"
			issue.Evidence = []string{sentence}
		}
		issues = append(issues, issue)
	}

	justified := domain.ContainsAny(chapter.Content, domain.BreakthroughKeywords)
	elapsed := chapter.Number - prevChapter
	res := c.levels.ValidateProgressionIn(state.PowerCategory, prevLevel, reported, elapsed, justified)
	for _, f := range append(res.Issues, res.Warnings...) {
		switch f.Kind {
		case powerlevel.FindingRegression, powerlevel.FindingStagnation:
			continue
		case powerlevel.FindingUnparseable:
			issues = append(issues, progressionIssue(f, domain.SeverityInfo, ref, chapter.Number, nil))
		default:
			issues = append(issues, progressionIssue(f, domain.SeverityWarning, ref, chapter.Number, nil))
		}
	}
	return issues
}

func (c *PostGenerationChecker) checkStatus(ch *domain.Character, up domain.CharacterUpsert, chapter domain.Chapter) []domain.ValidationIssue {
	reported := strings.TrimSpace(up.Set.Status)
	if reported == "" || !domain.IsDeceased(ch.Status) || domain.IsDeceased(reported) {
		return nil
	}

	if sentence, ok := domain.SentenceWith(chapter.Content, domain.ResurrectionKeywords); ok {
		return []domain.ValidationIssue{{
			Kind:          domain.IssueStatusInconsistency,
			Severity:      domain.SeverityInfo,
			Entity:        domain.CharacterRef(ch),
			ChapterNumber: chapter.Number,
			Message:       fmt.Sprintf("%s returns as %s; the chapter frames it as a resurrection", ch.Name, reported),
			Confidence:    0.7,
			Evidence:      []string{sentence},
		}}
	}
	return []domain.ValidationIssue{{
		Kind:          domain.IssueStatusInconsistency,
		Severity:      domain.SeverityCritical,
		Entity:        domain.CharacterRef(ch),
		ChapterNumber: chapter.Number,
		Message:       fmt.Sprintf("%s is %s but appears as %s", ch.Name, ch.Status, reported),
		Suggestion:    kindHints[domain.IssueStatusInconsistency],
		Confidence:    0.95,
	}}
}

func (c *PostGenerationChecker) checkRelationships(ch *domain.Character, up domain.CharacterUpsert, chapter domain.Chapter, candidates []domain.Candidate) []domain.ValidationIssue {
	var issues []domain.ValidationIssue
	for _, rel := range up.AddRelationships {
		res := c.resolver.Resolve(rel.TargetName, candidates)
		if !res.Found() {
			continue
		}
		prior, ok := ch.RelationshipTo(res.Match.ID)
		if !ok || domain.SameName(prior.Type, rel.Type) {
			continue
		}
		issues = append(issues, domain.ValidationIssue{
			Kind:          domain.IssueRelationshipChange,
			Severity:      domain.SeverityWarning,
			Entity:        domain.CharacterRef(ch),
			ChapterNumber: chapter.Number,
			Message:       fmt.Sprintf("%s's relationship with %s changed from %q to %q", ch.Name, res.Match.Name, prior.Type, rel.Type),
			Suggestion:    kindHints[domain.IssueRelationshipChange],
			Confidence:    0.7,
		})
	}
	return issues
}

func (c *PostGenerationChecker) checkWorldRule(state *domain.NovelState, up domain.WorldRuleUpsert, chapter domain.Chapter) []domain.ValidationIssue {
	var prior *domain.WorldRule
	for i := range state.WorldRules {
		if domain.SameName(state.WorldRules[i].Title, up.Title) {
			prior = &state.WorldRules[i]
			break
		}
	}
	if prior == nil || prior.Content == up.Content {
		return nil
	}

	found := Contradictions(prior.Content, up.Content)
	if len(found) == 0 {
		return nil
	}
	return []domain.ValidationIssue{{
		Kind:          domain.IssueWorldRuleConflict,
		Severity:      domain.SeverityWarning,
		Entity:        &domain.EntityRef{Type: domain.EntityWorldRule, ID: prior.ID, Name: prior.Title},
		ChapterNumber: chapter.Number,
		Message:       fmt.Sprintf("World rule %q may contradict its earlier version: %s", prior.Title, strings.Join(found, ", ")),
		Suggestion:    kindHints[domain.IssueWorldRuleConflict],
		Confidence:    0.4,
		Evidence:      []string{"before: " + prior.Content, "after: " + up.Content},
	}}
}

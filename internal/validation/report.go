// Package validation runs the two consistency checkers around chapter
// generation and turns their findings into scored reports.
//
// Critical issues make a report invalid; warnings and info are advisory.
package validation

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"continuity/internal/domain"
)

// Phase tells which checker produced a report
type Phase string

const (
	PhasePreGeneration  Phase = "pre_generation"
	PhasePostGeneration Phase = "post_generation"
)

// Completeness describes how ready the context is for the next chapter
type Completeness struct {
	CharactersReady    int  `json:"charactersReady"`
	CharactersTotal    int  `json:"charactersTotal"`
	PowerLevelsReady   bool `json:"powerLevelsReady"`
	RelationshipsReady bool `json:"relationshipsReady"`
}

// Report is the output of either checker
type Report struct {
	ID                  string                   `json:"id"`
	Phase               Phase                    `json:"phase"`
	NovelID             string                   `json:"novelId"`
	ChapterNumber       int                      `json:"chapterNumber"`
	Valid               bool                     `json:"valid"`
	Issues              []domain.ValidationIssue `json:"issues"`
	Summary             domain.Summary           `json:"summary"`
	Recommendations     []string                 `json:"recommendations"`
	ContextCompleteness *Completeness            `json:"contextCompleteness,omitempty"`
	GeneratedAt         time.Time                `json:"generatedAt"`
}

// IssuesOf returns the report's issues of one severity
func (r *Report) IssuesOf(s domain.Severity) []domain.ValidationIssue {
	var out []domain.ValidationIssue
	for _, i := range r.Issues {
		if i.Severity == s {
			out = append(out, i)
		}
	}
	return out
}

// IssuesFor returns the issues about one entity
func (r *Report) IssuesFor(t domain.EntityType, id string) []domain.ValidationIssue {
	var out []domain.ValidationIssue
	for _, i := range r.Issues {
		if i.Entity != nil && i.Entity.Type == t && i.Entity.ID == id {
			out = append(out, i)
		}
	}
	return out
}

var kindHints = map[domain.IssueKind]string{
	domain.IssueMissingState:        "Backfill tracked state for characters that appear in the story.",
	domain.IssueMissingPowerLevel:   "Record a power level for every active character.",
	domain.IssuePowerRegression:     "Explain power regressions in the text (injury, curse, seal) or correct the level.",
	domain.IssueRapidProgression:    "Slow down advancement or add intervening chapters.",
	domain.IssueMissingBreakthrough: "Write an explicit breakthrough scene for stage advances.",
	domain.IssueProgressionPace:     "Check that multi-stage jumps are paced believably.",
	domain.IssueStagnation:          "Consider advancing characters that have been static for a long time.",
	domain.IssueMissingRealm:        "Set the current realm before generating.",
	domain.IssueStaleContext:        "Refresh stale characters before they reappear.",
	domain.IssueStatusInconsistency: "Frame returns from death explicitly or keep the character deceased.",
	domain.IssueRelationshipChange:  "Show the event that changed the relationship.",
	domain.IssueMissingReverseEdge:  "Record relationships from both sides.",
	domain.IssueWorldRuleConflict:   "Reconcile the world-bible entry with its earlier version.",
}

func newReport(phase Phase, novelID string, chapter int, issues []domain.ValidationIssue, completeness *Completeness, now time.Time) *Report {
	if issues == nil {
		issues = []domain.ValidationIssue{}
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Severity.Rank() < issues[j].Severity.Rank()
	})

	summary := domain.Summarize(issues)
	recs := domain.Recommendations(summary)
	seen := make(map[domain.IssueKind]bool)
	for _, i := range issues {
		if i.Severity == domain.SeverityInfo || seen[i.Kind] {
			continue
		}
		seen[i.Kind] = true
		if hint, ok := kindHints[i.Kind]; ok {
			recs = append(recs, hint)
		}
	}

	return &Report{
		ID:                  uuid.NewString(),
		Phase:               phase,
		NovelID:             novelID,
		ChapterNumber:       chapter,
		Valid:               summary.Critical == 0,
		Issues:              issues,
		Summary:             summary,
		Recommendations:     recs,
		ContextCompleteness: completeness,
		GeneratedAt:         now.UTC(),
	}
}

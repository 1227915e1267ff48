package domain

import "fmt"

// Severity classifies a detected issue
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank orders severities from most to least severe
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// IssueKind names the class of inconsistency an issue reports
type IssueKind string

const (
	IssueMissingState        IssueKind = "missing_state"
	IssueMissingPowerLevel   IssueKind = "missing_power_level"
	IssuePowerRegression     IssueKind = "power_regression"
	IssueRapidProgression    IssueKind = "rapid_progression"
	IssueMissingBreakthrough IssueKind = "missing_breakthrough"
	IssueProgressionPace     IssueKind = "progression_pace"
	IssueStagnation          IssueKind = "stagnation"
	IssueMissingRealm        IssueKind = "missing_realm"
	IssueStaleContext        IssueKind = "stale_context"
	IssueStatusInconsistency IssueKind = "status_inconsistency"
	IssueRelationshipChange  IssueKind = "relationship_change"
	IssueMissingReverseEdge  IssueKind = "missing_reverse_relationship"
	IssueWorldRuleConflict   IssueKind = "world_rule_contradiction"
	IssueUnparseablePower    IssueKind = "unparseable_power_level"
	IssueUnresolvedCharacter IssueKind = "unresolved_character"
)

// EntityRef points at the entity an issue is about
type EntityRef struct {
	Type EntityType `json:"type"`
	ID   string     `json:"id,omitempty"`
	Name string     `json:"name,omitempty"`
}

// ValidationIssue is the universal output unit of every checker. Issues are
// values; nothing downstream mutates them.
type ValidationIssue struct {
	Kind          IssueKind  `json:"kind"`
	Severity      Severity   `json:"severity"`
	Entity        *EntityRef `json:"entity,omitempty"`
	ChapterNumber int        `json:"chapterNumber"`
	Message       string     `json:"message"`
	Suggestion    string     `json:"suggestion,omitempty"`
	Confidence    float64    `json:"confidence"`
	Evidence      []string   `json:"evidence,omitempty"`
}

// CharacterRef builds an EntityRef for a character
func CharacterRef(c *Character) *EntityRef {
	return &EntityRef{Type: EntityCharacter, ID: c.ID, Name: c.Name}
}

// Summary counts issues per severity together with the overall score
type Summary struct {
	Total        int `json:"total"`
	Critical     int `json:"critical"`
	Warnings     int `json:"warnings"`
	Info         int `json:"info"`
	OverallScore int `json:"overallScore"`
}

// Summarize counts issues and applies the scoring convention
func Summarize(issues []ValidationIssue) Summary {
	var s Summary
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityWarning:
			s.Warnings++
		default:
			s.Info++
		}
	}
	s.Total = len(issues)
	s.OverallScore = Score(s.Critical, s.Warnings, s.Info)
	return s
}

// Score applies the linear penalty model:
// max(0, 100 - 20*critical - 5*warning - 1*info)
func Score(critical, warnings, info int) int {
	score := 100 - 20*critical - 5*warnings - info
	if score < 0 {
		return 0
	}
	return score
}

// Score band thresholds
const (
	ScoreExcellent  = 90
	ScoreGood       = 75
	ScoreAcceptable = 60
)

// Recommendations maps a summary to qualitative advice
func Recommendations(s Summary) []string {
	var recs []string

	switch {
	case s.OverallScore >= ScoreExcellent:
		recs = append(recs, "Consistency is excellent; safe to proceed.")
	case s.OverallScore >= ScoreGood:
		recs = append(recs, "Minor inconsistencies found; review warnings before proceeding.")
	case s.OverallScore >= ScoreAcceptable:
		recs = append(recs, "Several inconsistencies found; revise affected entities before continuing.")
	default:
		recs = append(recs, "Major consistency problems; fix tracked state or regenerate the chapter.")
	}

	if s.Critical > 0 {
		recs = append(recs, fmt.Sprintf("Resolve %d critical issue(s) before approving the chapter.", s.Critical))
	}
	if s.Warnings > 0 {
		recs = append(recs, fmt.Sprintf("%d warning(s) are advisory and do not block progress.", s.Warnings))
	}
	return recs
}

package powerlevel

import "fmt"

// Policy controls how strictly progression is validated
type Policy struct {
	AllowRegression            bool
	RequireBreakthroughEvent   bool
	MinChaptersForBreakthrough int // per stage crossed in a multi-stage jump
	MaxChaptersPerStage        int // stagnation threshold
}

// DefaultPolicy returns the default policy: no regression, breakthroughs
// need a justifying event
func DefaultPolicy() Policy {
	return Policy{
		AllowRegression:            false,
		RequireBreakthroughEvent:   true,
		MinChaptersForBreakthrough: 3,
		MaxChaptersPerStage:        50,
	}
}

// FindingKind classifies a progression finding
type FindingKind string

const (
	FindingRegression          FindingKind = "regression"
	FindingTooFast             FindingKind = "too_fast"
	FindingMissingBreakthrough FindingKind = "missing_breakthrough"
	FindingLargeJump           FindingKind = "large_jump"
	FindingStagnation          FindingKind = "stagnation"
	FindingUnparseable         FindingKind = "unparseable"
)

// Finding is one progression issue or warning
type Finding struct {
	Kind    FindingKind
	Message string
}

// ProgressionResult is the outcome of ValidateProgression. Valid is true
// when there are no issues; warnings never invalidate.
type ProgressionResult struct {
	Valid    bool
	Issues   []Finding
	Warnings []Finding
	Delta    int // stage delta, 0 when unknown
}

// ValidateProgression checks a transition in the default category
func (s *System) ValidateProgression(previous, current string, chaptersElapsed int, hasJustificationEvent bool) ProgressionResult {
	return s.ValidateProgressionIn("", previous, current, chaptersElapsed, hasJustificationEvent)
}

// ValidateProgressionIn checks whether moving from previous to current over
// chaptersElapsed chapters is plausible under the active policy
func (s *System) ValidateProgressionIn(category, previous, current string, chaptersElapsed int, hasJustificationEvent bool) ProgressionResult {
	res := ProgressionResult{Valid: true}

	prev := s.Parse(previous, category)
	cur := s.Parse(current, category)
	if !prev.Known() || !cur.Known() {
		res.Warnings = append(res.Warnings, Finding{
			Kind:    FindingUnparseable,
			Message: fmt.Sprintf("cannot compare power levels %q and %q", previous, current),
		})
		return res
	}

	p := s.policy
	cmp := CompareLevels(prev, cur)
	delta := cur.Order - prev.Order
	res.Delta = delta

	if cmp > 0 && !p.AllowRegression {
		res.Issues = append(res.Issues, Finding{
			Kind:    FindingRegression,
			Message: fmt.Sprintf("power regression from %s to %s", prev, cur),
		})
	}

	if delta > 1 {
		need := p.MinChaptersForBreakthrough * delta
		if chaptersElapsed < need {
			res.Issues = append(res.Issues, Finding{
				Kind: FindingTooFast,
				Message: fmt.Sprintf("jumped %d stages (%s to %s) in %d chapters; at least %d expected",
					delta, prev.Stage, cur.Stage, chaptersElapsed, need),
			})
		} else {
			res.Warnings = append(res.Warnings, Finding{
				Kind:    FindingLargeJump,
				Message: fmt.Sprintf("jumped %d stages (%s to %s) at once", delta, prev.Stage, cur.Stage),
			})
		}
	}

	if delta >= 1 && p.RequireBreakthroughEvent && !hasJustificationEvent {
		res.Issues = append(res.Issues, Finding{
			Kind:    FindingMissingBreakthrough,
			Message: fmt.Sprintf("advancing from %s to %s requires a breakthrough event", prev.Stage, cur.Stage),
		})
	}

	if cmp == 0 && p.MaxChaptersPerStage > 0 && chaptersElapsed > p.MaxChaptersPerStage {
		res.Warnings = append(res.Warnings, Finding{
			Kind:    FindingStagnation,
			Message: fmt.Sprintf("unchanged at %s for %d chapters (limit %d)", cur, chaptersElapsed, p.MaxChaptersPerStage),
		})
	}

	res.Valid = len(res.Issues) == 0
	return res
}

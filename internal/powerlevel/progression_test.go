package powerlevel

import (
	"strings"
	"testing"
)

func hasKind(fs []Finding, kind FindingKind) bool {
	for _, f := range fs {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

func TestValidateProgression(t *testing.T) {
	s := NewSystem()

	tests := []struct {
		name         string
		prev, cur    string
		elapsed      int
		hasEvent     bool
		wantValid    bool
		wantIssue    FindingKind
		wantWarning  FindingKind
		wantNoIssues bool
	}{
		{
			name: "single stage with event", prev: "Qi Refining", cur: "Foundation Building",
			elapsed: 10, hasEvent: true, wantValid: true, wantNoIssues: true,
		},
		{
			name: "single stage without event", prev: "Qi Refining", cur: "Foundation Building",
			elapsed: 10, wantValid: false, wantIssue: FindingMissingBreakthrough,
		},
		{
			name: "regression", prev: "Core Formation", cur: "Foundation Building",
			elapsed: 5, wantValid: false, wantIssue: FindingRegression,
		},
		{
			name: "sub-stage regression", prev: "Peak Core Formation", cur: "Early Core Formation",
			elapsed: 5, wantValid: false, wantIssue: FindingRegression,
		},
		{
			name: "multi-stage jump too fast", prev: "Qi Refining", cur: "Nascent Soul",
			elapsed: 2, hasEvent: true, wantValid: false, wantIssue: FindingTooFast,
		},
		{
			name: "multi-stage jump with enough chapters", prev: "Qi Refining", cur: "Nascent Soul",
			elapsed: 9, hasEvent: true, wantValid: true, wantWarning: FindingLargeJump,
		},
		{
			name: "sub-stage advance needs no event", prev: "Early Core Formation", cur: "Late Core Formation",
			elapsed: 1, wantValid: true, wantNoIssues: true,
		},
		{
			name: "stagnation", prev: "Core Formation", cur: "Core Formation",
			elapsed: 51, wantValid: true, wantWarning: FindingStagnation,
		},
		{
			name: "at stagnation limit", prev: "Core Formation", cur: "Core Formation",
			elapsed: 50, wantValid: true, wantNoIssues: true,
		},
		{
			name: "unparseable", prev: "mortal", cur: "Core Formation",
			elapsed: 1, wantValid: true, wantWarning: FindingUnparseable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.ValidateProgression(tt.prev, tt.cur, tt.elapsed, tt.hasEvent)
			if got.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (issues %+v)", got.Valid, tt.wantValid, got.Issues)
			}
			if tt.wantIssue != "" && !hasKind(got.Issues, tt.wantIssue) {
				t.Errorf("expected issue %s, got %+v", tt.wantIssue, got.Issues)
			}
			if tt.wantWarning != "" && !hasKind(got.Warnings, tt.wantWarning) {
				t.Errorf("expected warning %s, got %+v", tt.wantWarning, got.Warnings)
			}
			if tt.wantNoIssues && len(got.Issues) > 0 {
				t.Errorf("expected no issues, got %+v", got.Issues)
			}
		})
	}
}

func TestValidateProgression_RegressionMessage(t *testing.T) {
	s := NewSystem()

	got := s.ValidateProgression("Core Formation", "Foundation Building", 5, false)
	if got.Valid {
		t.Fatal("expected invalid result")
	}
	found := false
	for _, f := range got.Issues {
		if strings.Contains(strings.ToLower(f.Message), "regression") {
			found = true
		}
	}
	if !found {
		t.Errorf("no issue mentions regression: %+v", got.Issues)
	}
}

func TestValidateProgression_BreakthroughGating(t *testing.T) {
	s := NewSystem()

	without := s.ValidateProgression("Qi Refining", "Foundation Building", 10, false)
	if !hasKind(without.Issues, FindingMissingBreakthrough) {
		t.Errorf("expected missing breakthrough issue, got %+v", without.Issues)
	}
	if !strings.Contains(without.Issues[0].Message, "breakthrough event") {
		t.Errorf("message %q should mention the breakthrough event", without.Issues[0].Message)
	}

	with := s.ValidateProgression("Qi Refining", "Foundation Building", 10, true)
	if hasKind(with.Issues, FindingMissingBreakthrough) {
		t.Errorf("unexpected missing breakthrough issue: %+v", with.Issues)
	}
}

func TestValidateProgression_Policy(t *testing.T) {
	lenient := NewSystem(WithPolicy(Policy{
		AllowRegression:            true,
		RequireBreakthroughEvent:   false,
		MinChaptersForBreakthrough: 1,
		MaxChaptersPerStage:        0,
	}))

	tests := []struct {
		name      string
		prev, cur string
		elapsed   int
	}{
		{"regression allowed", "Core Formation", "Qi Refining", 1},
		{"no event required", "Qi Refining", "Foundation Building", 1},
		{"stagnation disabled", "Core Formation", "Core Formation", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lenient.ValidateProgression(tt.prev, tt.cur, tt.elapsed, false)
			if !got.Valid || len(got.Issues) > 0 {
				t.Errorf("expected valid without issues, got %+v", got)
			}
			if len(got.Warnings) > 0 {
				t.Errorf("expected no warnings, got %+v", got.Warnings)
			}
		})
	}
}

func TestValidateProgressionIn_Category(t *testing.T) {
	s := NewSystem()

	got := s.ValidateProgressionIn("magic", "Apprentice", "Magus", 1, true)
	if !hasKind(got.Issues, FindingTooFast) {
		t.Errorf("expected too_fast in magic category, got %+v", got.Issues)
	}
	if got.Delta != 2 {
		t.Errorf("Delta = %d, want 2", got.Delta)
	}
}

package views

import (
	"fmt"

	"continuity/internal/domain"
	"continuity/internal/validation"
)

// ViewState holds the size and status line every view model embeds.
// The status line is graded with the same severities as issues.
type ViewState struct {
	Width          int
	Height         int
	Status         string
	StatusSeverity domain.Severity
}

// SetSize updates the view dimensions
func (s *ViewState) SetSize(width, height int) {
	s.Width = width
	s.Height = height
}

// SetStatus sets the status line
func (s *ViewState) SetStatus(msg string, sev domain.Severity) {
	s.Status = msg
	s.StatusSeverity = sev
}

// Fail puts err on the status line as critical
func (s *ViewState) Fail(err error) {
	s.SetStatus(err.Error(), domain.SeverityCritical)
}

// Failed reports whether the status line shows a failure
func (s *ViewState) Failed() bool {
	return s.Status != "" && s.StatusSeverity == domain.SeverityCritical
}

// ClearStatus clears the status line
func (s *ViewState) ClearStatus() {
	s.Status = ""
	s.StatusSeverity = ""
}

// SummarizeReport puts the issue counts of r on the status line, graded by
// its worst issue
func (s *ViewState) SummarizeReport(r *validation.Report) {
	sum := r.Summary
	switch {
	case sum.Critical > 0:
		s.SetStatus(fmt.Sprintf("Chapter %d: %d critical, %d warnings", r.ChapterNumber, sum.Critical, sum.Warnings), domain.SeverityCritical)
	case sum.Warnings > 0:
		s.SetStatus(fmt.Sprintf("Chapter %d: %d warnings", r.ChapterNumber, sum.Warnings), domain.SeverityWarning)
	default:
		s.SetStatus(fmt.Sprintf("Chapter %d: consistent", r.ChapterNumber), domain.SeverityInfo)
	}
}

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"continuity/internal/domain"
)

var (
	// Colors
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#10B981") // Green
	Muted     = lipgloss.Color("#6B7280") // Gray
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#EF4444") // Red
	Info      = lipgloss.Color("#60A5FA") // Blue
	White     = lipgloss.Color("#FFFFFF")

	// Base styles
	App = lipgloss.NewStyle().
		Padding(1, 2)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	// Severity badges
	Critical = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningText = lipgloss.NewStyle().
			Foreground(Warning)

	InfoText = lipgloss.NewStyle().
			Foreground(Info)

	IssueSelected = lipgloss.NewStyle().
			Background(Primary).
			Foreground(White).
			Bold(true)

	Evidence = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true).
			PaddingLeft(4)

	// Status bar
	StatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F2937")).
			Foreground(White).
			Padding(0, 1)

	InputLabel = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	// Help styles
	HelpKey = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	HelpDesc = lipgloss.NewStyle().
			Foreground(Muted)

	HelpSeparator = lipgloss.NewStyle().
			Foreground(Muted).
			SetString(" • ")

	// Message styles
	Success = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	ErrorMsg = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	MutedText = lipgloss.NewStyle().
			Foreground(Muted)
)

// SeverityStyle returns the badge style for a severity
func SeverityStyle(s domain.Severity) lipgloss.Style {
	switch s {
	case domain.SeverityCritical:
		return Critical
	case domain.SeverityWarning:
		return WarningText
	default:
		return InfoText
	}
}

// ScoreStyle colors a report score by the recommendation bands
func ScoreStyle(score int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch {
	case score >= domain.ScoreExcellent:
		return base.Foreground(Secondary)
	case score >= domain.ScoreGood:
		return base.Foreground(Info)
	case score >= domain.ScoreAcceptable:
		return base.Foreground(Warning)
	default:
		return base.Foreground(Error)
	}
}

package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"continuity/internal/adapters/tui/styles"
	"continuity/internal/domain"
	"continuity/internal/validation"
)

// RenderKeyHelp formats a key binding as help text (key + description)
func RenderKeyHelp(b key.Binding) string {
	help := b.Help()
	return fmt.Sprintf("%s %s",
		styles.HelpKey.Render(help.Key),
		styles.HelpDesc.Render(help.Desc),
	)
}

// RenderHelpLine renders multiple key bindings as a help line separated by bullets
func RenderHelpLine(bindings ...key.Binding) string {
	var parts []string
	for _, b := range bindings {
		parts = append(parts, RenderKeyHelp(b))
	}
	return strings.Join(parts, styles.HelpSeparator.String())
}

// RenderStatus renders a status line in the color of its severity
func RenderStatus(status string, sev domain.Severity) string {
	if status == "" {
		return ""
	}
	return styles.SeverityStyle(sev).Render(status)
}

// RenderMuted renders muted/secondary text
func RenderMuted(text string) string {
	return styles.MutedText.Render(text)
}

// RenderLabelValue renders a label: value pair
func RenderLabelValue(label, value string) string {
	return fmt.Sprintf("%s %s",
		styles.InputLabel.Render(label+":"),
		value,
	)
}

// SeverityBadge renders a fixed-width severity tag
func SeverityBadge(s domain.Severity) string {
	return styles.SeverityStyle(s).Render(fmt.Sprintf("%-8s", strings.ToUpper(string(s))))
}

// PhaseTitle names a report phase for headings
func PhaseTitle(r *validation.Report) string {
	if r.Phase == validation.PhasePreGeneration {
		return fmt.Sprintf("Pre-generation check · chapter %d", r.ChapterNumber)
	}
	return fmt.Sprintf("Post-generation check · chapter %d", r.ChapterNumber)
}

// IssueLine is the one-line form of an issue
func IssueLine(i domain.ValidationIssue) string {
	line := i.Message
	if i.Entity != nil && i.Entity.Name != "" {
		line = i.Entity.Name + ": " + line
	}
	return line
}

// IssueDetail renders the suggestion, confidence and evidence of an issue
func IssueDetail(i domain.ValidationIssue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "    %s %s\n", styles.InputLabel.Render("kind:"), i.Kind)
	if i.Suggestion != "" {
		fmt.Fprintf(&b, "    %s %s\n", styles.InputLabel.Render("suggestion:"), i.Suggestion)
	}
	fmt.Fprintf(&b, "    %s %.0f%%\n", styles.InputLabel.Render("confidence:"), i.Confidence*100)
	for _, e := range i.Evidence {
		b.WriteString(styles.Evidence.Render("“" + e + "”"))
		b.WriteByte('\n')
	}
	return b.String()
}

// ReportHeader renders the score and severity counts of a report
func ReportHeader(r *validation.Report) string {
	verdict := styles.Success.Render("valid")
	if !r.Valid {
		verdict = styles.ErrorMsg.Render("invalid")
	}
	s := r.Summary
	header := fmt.Sprintf("%s  %s  %s  %s  %s",
		styles.ScoreStyle(s.OverallScore).Render(fmt.Sprintf("score %d", s.OverallScore)),
		verdict,
		styles.Critical.Render(fmt.Sprintf("%d critical", s.Critical)),
		styles.WarningText.Render(fmt.Sprintf("%d warnings", s.Warnings)),
		styles.InfoText.Render(fmt.Sprintf("%d info", s.Info)),
	)
	if c := r.ContextCompleteness; c != nil {
		header += "\n" + RenderMuted(fmt.Sprintf("characters ready %d/%d · power levels %s · relationships %s",
			c.CharactersReady, c.CharactersTotal, readyWord(c.PowerLevelsReady), readyWord(c.RelationshipsReady)))
	}
	return header
}

func readyWord(ok bool) string {
	if ok {
		return "ready"
	}
	return "incomplete"
}

// RenderReport renders a full report for non-interactive output
func RenderReport(r *validation.Report) string {
	v := NewViewBuilder()
	v.Title(PhaseTitle(r)).Line(ReportHeader(r)).BlankLine()

	if len(r.Issues) == 0 {
		v.Muted("No issues found.")
	}
	for _, i := range r.Issues {
		v.Line(SeverityBadge(i.Severity) + " " + IssueLine(i))
		v.Raw(IssueDetail(i))
	}

	if len(r.Recommendations) > 0 {
		v.BlankLine().Line(styles.InputLabel.Render("Recommendations"))
		for _, rec := range r.Recommendations {
			v.Line("  - " + rec)
		}
	}
	return v.StringUnwrapped()
}

// ViewBuilder helps construct view output with consistent formatting
type ViewBuilder struct {
	b strings.Builder
}

// NewViewBuilder creates a new view builder
func NewViewBuilder() *ViewBuilder {
	return &ViewBuilder{}
}

// Title adds a title section
func (v *ViewBuilder) Title(title string) *ViewBuilder {
	v.b.WriteString(styles.Title.Render(title))
	v.b.WriteString("\n")
	return v
}

// Line adds a line of text
func (v *ViewBuilder) Line(text string) *ViewBuilder {
	v.b.WriteString(text)
	v.b.WriteString("\n")
	return v
}

// BlankLine adds a blank line
func (v *ViewBuilder) BlankLine() *ViewBuilder {
	v.b.WriteString("\n")
	return v
}

// Muted adds muted text followed by a newline
func (v *ViewBuilder) Muted(text string) *ViewBuilder {
	v.b.WriteString(RenderMuted(text))
	v.b.WriteString("\n")
	return v
}

// Status adds the status line if non-empty
func (v *ViewBuilder) Status(status string, sev domain.Severity) *ViewBuilder {
	if status == "" {
		return v
	}
	v.b.WriteString(RenderStatus(status, sev))
	v.b.WriteString("\n\n")
	return v
}

// Help adds a help line with key bindings
func (v *ViewBuilder) Help(bindings ...key.Binding) *ViewBuilder {
	v.b.WriteString(RenderHelpLine(bindings...))
	return v
}

// Raw adds raw text without any formatting
func (v *ViewBuilder) Raw(text string) *ViewBuilder {
	v.b.WriteString(text)
	return v
}

// String returns the built view string wrapped in the app style
func (v *ViewBuilder) String() string {
	return styles.App.Render(v.b.String())
}

// StringUnwrapped returns the built view string without app style wrapping
func (v *ViewBuilder) StringUnwrapped() string {
	return v.b.String()
}

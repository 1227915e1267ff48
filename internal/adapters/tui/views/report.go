package views

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	tea "github.com/charmbracelet/bubbletea"

	"continuity/internal/adapters/tui/styles"
	"continuity/internal/domain"
	"continuity/internal/validation"
)

// ReportKeyMap defines key bindings for the report view
type ReportKeyMap struct {
	Up         key.Binding
	Down       key.Binding
	NextPage   key.Binding
	PrevPage   key.Binding
	Expand     key.Binding
	Copy       key.Binding
	Edit       key.Binding
	Revalidate key.Binding
	Graph      key.Binding
	Help       key.Binding
	Quit       key.Binding
}

var ReportKeys = ReportKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("l", "right", "pgdown"),
		key.WithHelp("l/→", "next page"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("h", "left", "pgup"),
		key.WithHelp("h/←", "prev page"),
	),
	Expand: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "details"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy suggestion"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit chapter"),
	),
	Revalidate: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "re-run"),
	),
	Graph: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "timelines"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

const issuesPerPage = 8

// ReportModel lists the issues of one validation report
type ReportModel struct {
	ViewState
	report   *validation.Report
	pager    paginator.Model
	cursor   int
	expanded bool
	editPath string
	copy     func(string) error
}

// NewReportModel creates a report view. editPath is the file opened by the
// edit key; empty disables editing.
func NewReportModel(editPath string) *ReportModel {
	p := paginator.New()
	p.Type = paginator.Dots
	p.PerPage = issuesPerPage
	p.ActiveDot = styles.HelpKey.Render("•")
	p.InactiveDot = styles.MutedText.Render("•")

	return &ReportModel{
		pager:    p,
		editPath: editPath,
		copy:     clipboard.WriteAll,
	}
}

// SetReport replaces the displayed report and resets the selection
func (m *ReportModel) SetReport(r *validation.Report) {
	m.report = r
	m.cursor = 0
	m.expanded = false
	m.pager.Page = 0
	m.pager.SetTotalPages(len(m.issues()))
	m.SummarizeReport(r)
}

// Report returns the displayed report
func (m *ReportModel) Report() *validation.Report {
	return m.report
}

// Selected returns the issue under the cursor
func (m *ReportModel) Selected() (domain.ValidationIssue, bool) {
	issues := m.issues()
	if m.cursor < 0 || m.cursor >= len(issues) {
		return domain.ValidationIssue{}, false
	}
	return issues[m.cursor], true
}

func (m *ReportModel) issues() []domain.ValidationIssue {
	if m.report == nil {
		return nil
	}
	return m.report.Issues
}

// Init initializes the report view
func (m *ReportModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the report view
func (m *ReportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		m.ClearStatus()
		switch {
		case key.Matches(msg, ReportKeys.Quit):
			return m, tea.Quit

		case key.Matches(msg, ReportKeys.Up):
			m.moveCursor(-1)

		case key.Matches(msg, ReportKeys.Down):
			m.moveCursor(1)

		case key.Matches(msg, ReportKeys.NextPage):
			m.pager.NextPage()
			m.cursor = m.pager.Page * m.pager.PerPage
			m.expanded = false

		case key.Matches(msg, ReportKeys.PrevPage):
			m.pager.PrevPage()
			m.cursor = m.pager.Page * m.pager.PerPage
			m.expanded = false

		case key.Matches(msg, ReportKeys.Expand):
			m.expanded = !m.expanded

		case key.Matches(msg, ReportKeys.Copy):
			m.copySelected()

		case key.Matches(msg, ReportKeys.Edit):
			if m.editPath == "" {
				m.SetStatus("No chapter file to edit", domain.SeverityWarning)
				return m, nil
			}
			path := m.editPath
			return m, func() tea.Msg { return OpenEditorMsg{Path: path} }

		case key.Matches(msg, ReportKeys.Revalidate):
			return m, func() tea.Msg { return RevalidateMsg{} }

		case key.Matches(msg, ReportKeys.Graph):
			return m, func() tea.Msg { return SwitchToGraphMsg{} }

		case key.Matches(msg, ReportKeys.Help):
			return m, func() tea.Msg { return SwitchToHelpMsg{} }
		}
	}
	return m, nil
}

func (m *ReportModel) moveCursor(delta int) {
	n := len(m.issues())
	if n == 0 {
		return
	}
	next := m.cursor + delta
	if next < 0 || next >= n {
		return
	}
	m.cursor = next
	m.expanded = false
	m.pager.Page = m.cursor / m.pager.PerPage
}

func (m *ReportModel) copySelected() {
	issue, ok := m.Selected()
	if !ok {
		return
	}
	text := issue.Suggestion
	if text == "" {
		text = issue.Message
	}
	if err := m.copy(text); err != nil {
		m.Fail(fmt.Errorf("copy failed: %w", err))
		return
	}
	m.SetStatus("Copied to clipboard", domain.SeverityInfo)
}

// View renders the report view
func (m *ReportModel) View() string {
	v := NewViewBuilder()
	if m.report == nil {
		return v.Muted("No report yet. Press r to run the check.").
			BlankLine().
			Status(m.Status, m.StatusSeverity).
			Help(ReportKeys.Revalidate, ReportKeys.Help, ReportKeys.Quit).
			String()
	}

	v.Title(PhaseTitle(m.report)).Line(ReportHeader(m.report)).BlankLine()

	issues := m.issues()
	if len(issues) == 0 {
		v.Muted("No issues found.")
	}
	start, end := m.pager.GetSliceBounds(len(issues))
	for i := start; i < end; i++ {
		issue := issues[i]
		line := IssueLine(issue)
		if width := m.Width - 16; width > 20 && len(line) > width {
			line = line[:width-1] + "…"
		}
		if i == m.cursor {
			v.Line(SeverityBadge(issue.Severity) + " " + styles.IssueSelected.Render(line))
			if m.expanded {
				v.Raw(IssueDetail(issue))
			}
			continue
		}
		v.Line(SeverityBadge(issue.Severity) + " " + line)
	}
	if m.pager.TotalPages > 1 {
		v.BlankLine().Line("  " + m.pager.View())
	}

	if recs := m.report.Recommendations; len(recs) > 0 && !m.expanded {
		v.BlankLine().Line(styles.InputLabel.Render("Recommendations"))
		for _, rec := range recs {
			v.Line(RenderMuted("  - " + rec))
		}
	}

	v.BlankLine().Status(m.Status, m.StatusSeverity)
	v.Help(ReportKeys.Up, ReportKeys.Down, ReportKeys.Expand, ReportKeys.Copy,
		ReportKeys.Edit, ReportKeys.Revalidate, ReportKeys.Graph, ReportKeys.Help, ReportKeys.Quit)
	return v.String()
}

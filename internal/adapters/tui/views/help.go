package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"continuity/internal/adapters/tui/styles"
	"continuity/internal/domain"
)

// HelpKeyMap defines key bindings for the help view
type HelpKeyMap struct {
	Close key.Binding
}

var HelpKeys = HelpKeyMap{
	Close: key.NewBinding(
		key.WithKeys("esc", "q", "?"),
		key.WithHelp("esc/q/?", "close"),
	),
}

// HelpModel is the model for the help view
type HelpModel struct {
	ViewState
}

// NewHelpModel creates a new help view model
func NewHelpModel() *HelpModel {
	return &HelpModel{}
}

// Init initializes the help view
func (m *HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view
func (m *HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, HelpKeys.Close) {
			return m, func() tea.Msg {
				return SwitchToReportMsg{}
			}
		}
	}

	return m, nil
}

// View renders the help view
func (m *HelpModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Continuity Help"))
	b.WriteString("\n")
	b.WriteString(styles.Subtitle.Render("Narrative consistency checks"))
	b.WriteString("\n\n")

	b.WriteString(styles.InputLabel.Render("Report"))
	b.WriteString("\n")
	b.WriteString(helpLine("j / k / ↑ / ↓", "Move between issues"))
	b.WriteString(helpLine("h / l / ← / →", "Previous / next page"))
	b.WriteString(helpLine("Enter", "Show suggestion and evidence"))
	b.WriteString(helpLine("c", "Copy suggestion to clipboard"))
	b.WriteString(helpLine("e", "Open the chapter in $EDITOR"))
	b.WriteString(helpLine("r", "Reload the state file and re-run"))
	b.WriteString("\n")

	b.WriteString(styles.InputLabel.Render("Timelines"))
	b.WriteString("\n")
	b.WriteString(helpLine("g", "Toggle power timelines"))
	b.WriteString(helpLine("/", "Filter characters"))
	b.WriteString("\n")

	b.WriteString(styles.InputLabel.Render("General"))
	b.WriteString("\n")
	b.WriteString(helpLine("?", "Toggle help"))
	b.WriteString(helpLine("q / Ctrl+C", "Quit"))
	b.WriteString("\n")

	b.WriteString(styles.InputLabel.Render("Severities"))
	b.WriteString("\n")
	b.WriteString("  " + SeverityBadge(domain.SeverityCritical) + RenderMuted("invalidates the report, -20 score") + "\n")
	b.WriteString("  " + SeverityBadge(domain.SeverityWarning) + RenderMuted("review before publishing, -5 score") + "\n")
	b.WriteString("  " + SeverityBadge(domain.SeverityInfo) + RenderMuted("advisory, -1 score") + "\n\n")

	b.WriteString(styles.HelpDesc.Render("Press "))
	b.WriteString(styles.HelpKey.Render("esc"))
	b.WriteString(styles.HelpDesc.Render(" or "))
	b.WriteString(styles.HelpKey.Render("?"))
	b.WriteString(styles.HelpDesc.Render(" to close"))

	return styles.App.Render(b.String())
}

func helpLine(key, desc string) string {
	return "  " + styles.HelpKey.Render(padRight(key, 20)) + styles.HelpDesc.Render(desc) + "\n"
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

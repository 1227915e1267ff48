package views

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"continuity/internal/adapters/tui/styles"
	"continuity/internal/domain"
	"continuity/internal/graph"
)

// TimelineKeyMap defines key bindings for the timeline view
type TimelineKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Filter key.Binding
	Back   key.Binding
}

var TimelineKeys = TimelineKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Filter: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "g"),
		key.WithHelp("esc", "back"),
	),
}

// CharacterRow is one character with its power timeline
type CharacterRow struct {
	Node     graph.Node
	Timeline graph.PowerTimeline
}

// CharacterRows pairs every character node of a snapshot with its timeline
func CharacterRows(snap graph.Snapshot) []CharacterRow {
	timelines := make(map[string]graph.PowerTimeline, len(snap.PowerProgressions))
	for _, tl := range snap.PowerProgressions {
		timelines[tl.CharacterID] = tl
	}
	var rows []CharacterRow
	for _, n := range snap.Nodes {
		if n.Type != domain.EntityCharacter {
			continue
		}
		rows = append(rows, CharacterRow{Node: n, Timeline: timelines[n.Properties.EntityID]})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Node.Label < rows[j].Node.Label })
	return rows
}

// TimelineModel browses characters and their power progression
type TimelineModel struct {
	ViewState
	rows     []CharacterRow
	visible  []CharacterRow
	cursor   int
	filter   textinput.Model
	focusing bool
}

// NewTimelineModel creates a timeline view
func NewTimelineModel() *TimelineModel {
	input := textinput.New()
	input.Placeholder = "Filter characters..."
	input.Prompt = "/ "
	return &TimelineModel{filter: input}
}

// SetRows replaces the characters shown
func (m *TimelineModel) SetRows(rows []CharacterRow) {
	m.rows = rows
	m.applyFilter()
}

// Visible returns the rows that pass the filter, best match first
func (m *TimelineModel) Visible() []CharacterRow {
	return m.visible
}

func (m *TimelineModel) applyFilter() {
	query := m.filter.Value()
	if len(query) < 2 {
		m.visible = m.rows
	} else {
		type scored struct {
			row   CharacterRow
			score int
		}
		var hits []scored
		for _, r := range m.rows {
			if s := domain.FuzzyScore(r.Node.Label, query); s > 0 {
				hits = append(hits, scored{r, s})
			}
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
		m.visible = make([]CharacterRow, len(hits))
		for i, h := range hits {
			m.visible[i] = h.row
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}

// Init initializes the timeline view
func (m *TimelineModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the timeline view
func (m *TimelineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if m.focusing {
			switch msg.String() {
			case "esc", "enter":
				m.focusing = false
				m.filter.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.applyFilter()
			return m, cmd
		}

		switch {
		case key.Matches(msg, TimelineKeys.Back):
			return m, func() tea.Msg { return SwitchToReportMsg{} }
		case key.Matches(msg, TimelineKeys.Filter):
			m.focusing = true
			return m, m.filter.Focus()
		case key.Matches(msg, TimelineKeys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, TimelineKeys.Down):
			if m.cursor < len(m.visible)-1 {
				m.cursor++
			}
		}
	}
	return m, nil
}

// View renders the timeline view
func (m *TimelineModel) View() string {
	v := NewViewBuilder().Title("Power timelines")
	if m.focusing || m.filter.Value() != "" {
		v.Line(m.filter.View()).BlankLine()
	}

	if len(m.visible) == 0 {
		v.Muted("No characters.")
	}
	for i, r := range m.visible {
		line := fmt.Sprintf("%-24s %s", r.Node.Label, r.Timeline.CurrentLevel)
		if r.Node.Properties.Status != "" {
			line += "  " + RenderMuted(r.Node.Properties.Status)
		}
		if i == m.cursor {
			v.Line(styles.IssueSelected.Render(line))
			continue
		}
		v.Line(line)
	}

	if m.cursor < len(m.visible) {
		tl := m.visible[m.cursor].Timeline
		v.BlankLine().Line(styles.InputLabel.Render("Progression"))
		v.Line(fmt.Sprintf("  ch %-4d %s %s", tl.BaselineChapter, tl.Baseline, RenderMuted("(baseline)")))
		for _, ev := range tl.Events {
			line := fmt.Sprintf("  ch %-4d %s %s", ev.ChapterNumber, ev.PowerLevel, progressionStyle(ev.Type))
			if ev.Justification != "" {
				line += "  " + RenderMuted(ev.Justification)
			}
			v.Line(line)
		}
	}

	v.BlankLine().Help(TimelineKeys.Up, TimelineKeys.Down, TimelineKeys.Filter, TimelineKeys.Back)
	return v.String()
}

func progressionStyle(t graph.ProgressionType) string {
	switch t {
	case graph.ProgressionBreakthrough:
		return styles.Success.Render(string(t))
	case graph.ProgressionRegression:
		return styles.ErrorMsg.Render(string(t))
	default:
		return RenderMuted(string(t))
	}
}

package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"continuity/internal/adapters/tui/views"
	"continuity/internal/application"
	"continuity/internal/application/commands"
	"continuity/internal/domain"
	"continuity/internal/ports"
)

// ViewState represents the current view
type ViewState int

const (
	ViewReport ViewState = iota
	ViewTimeline
	ViewHelp
)

// Options selects what the viewer checks
type Options struct {
	StatePath string
	// ChapterPath switches the viewer to post-generation mode. The chapter
	// is always checked as a dry run so re-running stays repeatable.
	ChapterPath string
	Resume      bool
}

// App is the main TUI application model
type App struct {
	engine *application.Engine
	source ports.NovelSource
	store  ports.SnapshotStore
	editor ports.EditorOpener
	opts   Options

	state    ViewState
	report   *views.ReportModel
	timeline *views.TimelineModel
	help     *views.HelpModel
}

// NewApp creates a new TUI application. store and editor may be nil.
func NewApp(engine *application.Engine, source ports.NovelSource, store ports.SnapshotStore, ed ports.EditorOpener, opts Options) *App {
	editPath := opts.ChapterPath
	if editPath == "" {
		editPath = opts.StatePath
	}
	if ed == nil {
		editPath = ""
	}
	return &App{
		engine:   engine,
		source:   source,
		store:    store,
		editor:   ed,
		opts:     opts,
		state:    ViewReport,
		report:   views.NewReportModel(editPath),
		timeline: views.NewTimelineModel(),
		help:     views.NewHelpModel(),
	}
}

// Init initializes the application
func (a *App) Init() tea.Cmd {
	return a.runCheck
}

// runCheck reloads the novel state and runs the configured checker
func (a *App) runCheck() tea.Msg {
	ctx := context.Background()

	load := commands.NewLoadCommand(a.engine, a.source, a.store, a.opts.StatePath, a.opts.Resume && a.store != nil)
	if _, err := load.Execute(ctx); err != nil {
		return views.ReportReadyMsg{Err: err}
	}

	if a.opts.ChapterPath == "" {
		r, err := commands.NewPreValidateCommand(a.engine).Execute(ctx)
		return views.ReportReadyMsg{Report: r, Err: err}
	}

	post := commands.NewPostValidateCommand(a.engine, a.source, nil, a.opts.ChapterPath)
	post.DryRun = true
	res, err := post.Execute(ctx)
	if err != nil {
		return views.ReportReadyMsg{Err: err}
	}
	return views.ReportReadyMsg{Report: res.Report}
}

// Update handles messages for the application
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.report.SetSize(msg.Width, msg.Height)
		a.timeline.SetSize(msg.Width, msg.Height)
		a.help.SetSize(msg.Width, msg.Height)
		return a, nil

	case views.ReportReadyMsg:
		if msg.Err != nil {
			a.report.Fail(msg.Err)
			return a, nil
		}
		a.report.SetReport(msg.Report)
		a.timeline.SetRows(views.CharacterRows(a.engine.GraphSnapshot()))
		return a, nil

	case views.RevalidateMsg:
		a.report.SetStatus("Checking...", domain.SeverityInfo)
		return a, a.runCheck

	case views.SwitchToGraphMsg:
		a.state = ViewTimeline
		return a, nil

	case views.SwitchToHelpMsg:
		a.state = ViewHelp
		return a, nil

	case views.SwitchToReportMsg:
		a.state = ViewReport
		return a, nil

	case views.OpenEditorMsg:
		return a, a.openEditor(msg.Path)

	case editorFinishedMsg:
		if msg.err != nil {
			a.report.Fail(msg.err)
			return a, nil
		}
		// the chapter may have changed on disk
		return a, a.runCheck
	}

	// Delegate to current view
	var cmd tea.Cmd
	switch a.state {
	case ViewReport:
		_, cmd = a.report.Update(msg)
	case ViewTimeline:
		_, cmd = a.timeline.Update(msg)
	case ViewHelp:
		_, cmd = a.help.Update(msg)
	}

	return a, cmd
}

type editorFinishedMsg struct{ err error }

func (a *App) openEditor(path string) tea.Cmd {
	if a.editor == nil {
		return nil
	}

	cmd, err := a.editor.Command(path)
	if err != nil {
		return func() tea.Msg {
			return editorFinishedMsg{err: err}
		}
	}

	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{err: err}
	})
}

// View renders the current view
func (a *App) View() string {
	switch a.state {
	case ViewTimeline:
		return a.timeline.View()
	case ViewHelp:
		return a.help.View()
	default:
		return a.report.View()
	}
}

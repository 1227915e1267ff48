package tui

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"continuity/internal/adapters/tui/views"
	"continuity/internal/application"
	"continuity/internal/domain"
	"continuity/internal/validation"
)

type stubSource struct {
	err error
	gen *domain.GeneratedChapter
}

func (s *stubSource) LoadNovel(context.Context, string) (*domain.NovelState, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.NovelState{
		ID:             "novel-1",
		CurrentRealmID: "r1",
		Realms:         []domain.Realm{{ID: "r1", Name: "Mortal Realm"}},
		Characters: []domain.Character{{
			ID: "c1", Name: "Lin Feng", IsProtagonist: true,
			CurrentCultivation: "Foundation Building", Status: domain.StatusAlive, LastUpdatedChapter: 5,
		}},
		Chapters: []domain.Chapter{{ID: "ch5", Number: 5}},
	}, nil
}

func (s *stubSource) LoadGenerated(context.Context, string) (*domain.GeneratedChapter, error) {
	return s.gen, nil
}

type stubEditor struct{ path string }

func (e *stubEditor) OpenFile(path string) error { e.path = path; return nil }

func (e *stubEditor) Command(path string) (*exec.Cmd, error) {
	e.path = path
	return nil, errors.New("editor disabled in tests")
}

func TestApp_PreGenerationCheck(t *testing.T) {
	app := NewApp(application.NewEngine(), &stubSource{}, nil, nil, Options{StatePath: "novel.yaml"})

	msg := app.Init()()
	ready, ok := msg.(views.ReportReadyMsg)
	if !ok {
		t.Fatalf("expected ReportReadyMsg, got %T", msg)
	}
	if ready.Err != nil {
		t.Fatalf("unexpected error: %v", ready.Err)
	}
	if ready.Report.Phase != validation.PhasePreGeneration {
		t.Errorf("expected pre-generation report, got %s", ready.Report.Phase)
	}

	app.Update(ready)
	if app.report.Report() == nil {
		t.Error("expected report to be shown")
	}
	if len(app.timeline.Visible()) != 1 {
		t.Errorf("expected 1 character row, got %d", len(app.timeline.Visible()))
	}
}

func TestApp_PostGenerationIsDryRun(t *testing.T) {
	src := &stubSource{gen: &domain.GeneratedChapter{
		Chapter: domain.Chapter{ID: "ch6", Number: 6, Content: "Lin Feng broke through."},
		Payload: domain.ExtractionPayload{ChapterID: "ch6", CharacterUpserts: []domain.CharacterUpsert{
			{Name: "Lin Feng", Set: domain.CharacterFields{Cultivation: "Core Formation"}},
		}},
	}}
	engine := application.NewEngine()
	app := NewApp(engine, src, nil, nil, Options{StatePath: "novel.yaml", ChapterPath: "ch6.yaml"})

	for range 2 {
		ready := app.runCheck().(views.ReportReadyMsg)
		if ready.Err != nil {
			t.Fatalf("unexpected error: %v", ready.Err)
		}
		if ready.Report.Phase != validation.PhasePostGeneration {
			t.Errorf("expected post-generation report, got %s", ready.Report.Phase)
		}
	}

	tl, err := engine.PowerTimeline("c1")
	if err != nil {
		t.Fatal(err)
	}
	if tl.CurrentLevel != "Foundation Building" {
		t.Errorf("expected dry run to leave the timeline alone, got %s", tl.CurrentLevel)
	}
}

func TestApp_LoadErrorIsShown(t *testing.T) {
	app := NewApp(application.NewEngine(), &stubSource{err: errors.New("boom")}, nil, nil, Options{StatePath: "novel.yaml"})

	app.Update(app.runCheck())
	if !strings.Contains(app.View(), "boom") {
		t.Error("expected load error in the view")
	}
}

func TestApp_SwitchesViews(t *testing.T) {
	app := NewApp(application.NewEngine(), &stubSource{}, nil, nil, Options{StatePath: "novel.yaml"})

	app.Update(views.SwitchToGraphMsg{})
	if app.state != ViewTimeline {
		t.Errorf("expected timeline view, got %d", app.state)
	}
	app.Update(views.SwitchToHelpMsg{})
	if !strings.Contains(app.View(), "Continuity Help") {
		t.Error("expected help view")
	}
	app.Update(views.SwitchToReportMsg{})
	if app.state != ViewReport {
		t.Errorf("expected report view, got %d", app.state)
	}
}

func TestApp_EditorError(t *testing.T) {
	ed := &stubEditor{}
	app := NewApp(application.NewEngine(), &stubSource{}, nil, ed, Options{StatePath: "novel.yaml", ChapterPath: "ch6.md"})

	_, cmd := app.Update(views.OpenEditorMsg{Path: "ch6.md"})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	app.Update(cmd())
	if ed.path != "ch6.md" {
		t.Errorf("expected editor to be asked for ch6.md, got %q", ed.path)
	}
	if !app.report.Failed() {
		t.Error("expected editor error on the status line")
	}
}

var _ tea.Model = (*App)(nil)

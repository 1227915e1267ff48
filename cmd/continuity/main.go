package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"continuity/internal/adapters/editor"
	"continuity/internal/adapters/filesystem"
	"continuity/internal/adapters/sqlite"
	"continuity/internal/adapters/tui"
	"continuity/internal/application"
	"continuity/internal/config"
	"continuity/internal/ports"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	stateFlag := flag.String("state", cfg.StatePath, "novel state file (YAML or JSON)")
	chapterFlag := flag.String("chapter", "", "generated chapter file to check (dry run)")
	freshFlag := flag.Bool("fresh", false, "ignore the saved session for this novel")
	flag.Parse()

	// stderr belongs to the alt screen while the program runs
	logger := zap.NewNop()

	levels, err := cfg.Levels(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	engine := application.NewEngine(
		application.WithLogger(logger),
		application.WithLevels(levels),
		application.WithStaleThreshold(cfg.StaleThreshold),
	)

	// Initialize adapters
	source := filesystem.NewSource("")
	editorOpener := editor.NewOpener(cfg.Editor)

	var store ports.SnapshotStore
	if !*freshFlag {
		s := sqlite.NewStore()
		if err := s.Open(cfg.DBPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer s.Close()
		store = s
	}

	app := tui.NewApp(engine, source, store, editorOpener, tui.Options{
		StatePath:   *stateFlag,
		ChapterPath: *chapterFlag,
		Resume:      !*freshFlag,
	})

	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

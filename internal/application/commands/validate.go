package commands

import (
	"context"
	"fmt"
	"strings"

	"continuity/internal/application"
	"continuity/internal/ports"
)

// PreValidateCommand checks readiness before the next chapter is generated
type PreValidateCommand struct {
	engine *application.Engine
}

// NewPreValidateCommand creates a new PreValidateCommand
func NewPreValidateCommand(engine *application.Engine) *PreValidateCommand {
	return &PreValidateCommand{engine: engine}
}

// Execute runs the pre-generation validator
func (c *PreValidateCommand) Execute(ctx context.Context) (*application.Report, error) {
	return c.engine.PreValidate()
}

// PostValidateResult is the outcome of processing a generated chapter
type PostValidateResult struct {
	Report  *application.Report
	Update  *application.UpdateResult // nil on a dry run
	Saved   bool
	Message string
}

// PostValidateCommand checks a generated chapter and, unless DryRun is
// set, applies it to the graph and tracker. With Save the session is
// persisted afterwards.
type PostValidateCommand struct {
	engine        *application.Engine
	source        ports.NovelSource
	store         ports.SnapshotStore
	GeneratedPath string
	Generated     *application.GeneratedChapter
	DryRun        bool
	Save          bool
}

// NewPostValidateCommand creates a PostValidateCommand reading the chapter
// from a file
func NewPostValidateCommand(engine *application.Engine, source ports.NovelSource, store ports.SnapshotStore, path string) *PostValidateCommand {
	return &PostValidateCommand{
		engine:        engine,
		source:        source,
		store:         store,
		GeneratedPath: path,
	}
}

// NewPostValidateCommandFor creates a PostValidateCommand for an in-memory chapter
func NewPostValidateCommandFor(engine *application.Engine, store ports.SnapshotStore, gen *application.GeneratedChapter) *PostValidateCommand {
	return &PostValidateCommand{
		engine:    engine,
		store:     store,
		Generated: gen,
	}
}

// Validate checks if the operation is valid
func (c *PostValidateCommand) Validate() error {
	if c.Generated == nil && strings.TrimSpace(c.GeneratedPath) == "" {
		return &application.ValidationError{
			Field:   "generatedPath",
			Message: "generated chapter file is required",
		}
	}
	if c.Generated == nil && c.source == nil {
		return &application.ValidationError{
			Field:   "generatedPath",
			Message: "no source to read the generated chapter from",
		}
	}
	if c.Save && c.DryRun {
		return &application.ValidationError{
			Field:   "save",
			Message: "cannot save a dry run",
		}
	}
	if c.Save && c.store == nil {
		return &application.ValidationError{
			Field:   "save",
			Message: "saving requires a snapshot store",
		}
	}
	return nil
}

// Execute runs the post-generation checker and updater
func (c *PostValidateCommand) Execute(ctx context.Context) (*PostValidateResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	gen := c.Generated
	if gen == nil {
		var err error
		gen, err = c.source.LoadGenerated(ctx, c.GeneratedPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read generated chapter: %w", err)
		}
	}

	if c.DryRun {
		r, err := c.engine.PostCheck(gen)
		if err != nil {
			return nil, err
		}
		return &PostValidateResult{
			Report:  r,
			Message: fmt.Sprintf("Checked chapter %d (dry run): score %d", gen.Chapter.Number, r.Summary.OverallScore),
		}, nil
	}

	res, err := c.engine.PostProcess(gen)
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Applied chapter %d: score %d, %d power level(s) updated",
		gen.Chapter.Number, res.Report.Summary.OverallScore, res.Update.PowerLevelsUpdated)
	result := &PostValidateResult{
		Report:  res.Report,
		Update:  res.Update,
		Message: msg,
	}

	if c.Save {
		if err := saveSession(ctx, c.engine, c.store); err != nil {
			return nil, err
		}
		result.Saved = true
	}
	return result, nil
}

func saveSession(ctx context.Context, engine *application.Engine, store ports.SnapshotStore) error {
	session, err := engine.Session()
	if err != nil {
		return err
	}
	if err := store.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

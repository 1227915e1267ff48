package commands

import (
	"context"
	"fmt"

	"continuity/internal/application"
	"continuity/internal/ports"
)

// HistoryResult is an entity's snapshot history, or its state at one chapter
type HistoryResult struct {
	EntityType application.EntityType
	EntityID   string
	Snapshots  []application.EntitySnapshot
	Chapter    int
	StateAt    application.EntityState // set when a chapter was requested
}

// HistoryCommand shows the tracked history of one entity
type HistoryCommand struct {
	engine     *application.Engine
	EntityType string
	EntityID   string
	Chapter    int // 0 for the full history
}

// NewHistoryCommand creates a new HistoryCommand
func NewHistoryCommand(engine *application.Engine, entityType, entityID string, chapter int) *HistoryCommand {
	return &HistoryCommand{
		engine:     engine,
		EntityType: entityType,
		EntityID:   entityID,
		Chapter:    chapter,
	}
}

// Validate checks if the history query is valid
func (c *HistoryCommand) Validate() error {
	if _, err := application.ValidateEntityType("entityType", c.EntityType); err != nil {
		return err
	}
	if err := application.ValidateRequired("entityID", c.EntityID); err != nil {
		return err
	}
	if c.Chapter < 0 {
		return &application.ValidationError{Field: "chapter", Message: "chapter cannot be negative"}
	}
	return nil
}

// Execute runs the history query
func (c *HistoryCommand) Execute(ctx context.Context) (*HistoryResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	t, _ := application.ParseEntityType(c.EntityType)

	snaps, err := c.engine.History(t, c.EntityID)
	if err != nil {
		return nil, err
	}
	result := &HistoryResult{EntityType: t, EntityID: c.EntityID, Snapshots: snaps, Chapter: c.Chapter}
	if c.Chapter > 0 {
		result.StateAt, err = c.engine.StateAt(t, c.EntityID, c.Chapter)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// RollbackResult is the state an entity was rolled back to
type RollbackResult struct {
	State   application.EntityState
	Saved   bool
	Message string
}

// RollbackCommand discards an entity's snapshots after a chapter
type RollbackCommand struct {
	engine     *application.Engine
	store      ports.SnapshotStore
	EntityType string
	EntityID   string
	Chapter    int
	Save       bool
}

// NewRollbackCommand creates a new RollbackCommand. store may be nil when
// Save is false.
func NewRollbackCommand(engine *application.Engine, store ports.SnapshotStore, entityType, entityID string, chapter int, save bool) *RollbackCommand {
	return &RollbackCommand{
		engine:     engine,
		store:      store,
		EntityType: entityType,
		EntityID:   entityID,
		Chapter:    chapter,
		Save:       save,
	}
}

// Validate checks if the rollback is valid
func (c *RollbackCommand) Validate() error {
	if _, err := application.ValidateEntityType("entityType", c.EntityType); err != nil {
		return err
	}
	if err := application.ValidateRequired("entityID", c.EntityID); err != nil {
		return err
	}
	if err := application.ValidateChapterNumber("chapter", c.Chapter); err != nil {
		return err
	}
	if c.Save && c.store == nil {
		return &application.ValidationError{Field: "save", Message: "saving requires a snapshot store"}
	}
	return nil
}

// Execute runs the rollback
func (c *RollbackCommand) Execute(ctx context.Context) (*RollbackResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	t, _ := application.ParseEntityType(c.EntityType)

	state, err := c.engine.Rollback(t, c.EntityID, c.Chapter)
	if err != nil {
		return nil, err
	}
	result := &RollbackResult{
		State:   state,
		Message: fmt.Sprintf("Rolled back %s %s to chapter %d", t, c.EntityID, c.Chapter),
	}
	if c.Save {
		if err := saveSession(ctx, c.engine, c.store); err != nil {
			return nil, err
		}
		result.Saved = true
	}
	return result, nil
}

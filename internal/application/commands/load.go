package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"continuity/internal/application"
	"continuity/internal/ports"
)

// LoadResult describes a loaded novel session
type LoadResult struct {
	NovelID   string
	Nodes     int
	Edges     int
	Snapshots int
	Resumed   bool
	Message   string
}

// LoadCommand reads a novel state file and loads it into the engine,
// optionally resuming the session saved for the novel
type LoadCommand struct {
	engine    *application.Engine
	source    ports.NovelSource
	store     ports.SnapshotStore
	StatePath string
	Resume    bool
}

// NewLoadCommand creates a new LoadCommand. store may be nil when Resume is false.
func NewLoadCommand(engine *application.Engine, source ports.NovelSource, store ports.SnapshotStore, statePath string, resume bool) *LoadCommand {
	return &LoadCommand{
		engine:    engine,
		source:    source,
		store:     store,
		StatePath: statePath,
		Resume:    resume,
	}
}

// Validate checks if the load operation is valid
func (c *LoadCommand) Validate() error {
	if strings.TrimSpace(c.StatePath) == "" {
		return &application.ValidationError{
			Field:   "statePath",
			Message: "state file path is required",
		}
	}
	if c.Resume && c.store == nil {
		return &application.ValidationError{
			Field:   "resume",
			Message: "resuming requires a snapshot store",
		}
	}
	return nil
}

// Execute runs the load command
func (c *LoadCommand) Execute(ctx context.Context) (*LoadResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	state, err := c.source.LoadNovel(ctx, c.StatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read novel state: %w", err)
	}

	var saved *ports.Session
	if c.Resume {
		saved, err = c.store.Load(ctx, state.ID)
		switch {
		case errors.Is(err, ports.ErrSessionNotFound):
			saved = nil
		case err != nil:
			return nil, fmt.Errorf("failed to load saved session: %w", err)
		}
	}

	if err := c.engine.Load(state, saved); err != nil {
		return nil, fmt.Errorf("failed to load novel: %w", err)
	}

	stats := c.engine.GraphStats()
	summary := c.engine.TrackerSummary()
	result := &LoadResult{
		NovelID:   state.ID,
		Nodes:     stats.Nodes,
		Edges:     stats.Edges,
		Snapshots: summary.TotalSnapshots,
		Resumed:   saved != nil,
	}
	result.Message = fmt.Sprintf("Loaded %s: %d nodes, %d edges, %d snapshots", state.ID, stats.Nodes, stats.Edges, summary.TotalSnapshots)
	if result.Resumed {
		result.Message += " (resumed)"
	}
	return result, nil
}

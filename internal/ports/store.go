package ports

import (
	"context"
	"time"

	"continuity/internal/graph"
	"continuity/internal/statetracker"
)

// Session is the durable part of one novel's engine session
type Session struct {
	NovelID string
	Graph   graph.Snapshot
	History []statetracker.Snapshot
	SavedAt time.Time
}

// SessionInfo describes a stored session without its contents
type SessionInfo struct {
	NovelID   string
	Nodes     int
	Edges     int
	Snapshots int
	SavedAt   time.Time
}

// SnapshotStore persists graph snapshots and tracker history per novel.
// Saving replaces whatever was stored for the novel.
type SnapshotStore interface {
	// Lifecycle
	Open(path string) error
	Close() error

	Save(ctx context.Context, s *Session) error
	// Load returns ErrSessionNotFound when nothing is stored for novelID
	Load(ctx context.Context, novelID string) (*Session, error)
	List(ctx context.Context) ([]SessionInfo, error)
	Delete(ctx context.Context, novelID string) error
}

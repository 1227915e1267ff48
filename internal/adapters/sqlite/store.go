package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"continuity/internal/graph"
	"continuity/internal/ports"

	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

// Store implements ports.SnapshotStore using SQLite
type Store struct {
	db     *sql.DB
	dbPath string
	logger *zap.Logger
}

// Ensure Store implements SnapshotStore
var _ ports.SnapshotStore = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a new SQLite snapshot store
func NewStore(opts ...Option) *Store {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultPath returns the database path under the XDG data directory
func DefaultPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "continuity", "sessions.db")
}

// Open opens or creates the database at path; an empty path uses DefaultPath
func (s *Store) Open(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}
	s.dbPath = path

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	// WAL so a watching process can read while another writes
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	_, err = db.Exec(`
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;
		PRAGMA busy_timeout = 5000;
		PRAGMA foreign_keys = ON;

		CREATE TABLE IF NOT EXISTS sessions (
			novel_id TEXT PRIMARY KEY,
			saved_at INTEGER NOT NULL,
			generated_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS nodes (
			novel_id TEXT NOT NULL REFERENCES sessions(novel_id) ON DELETE CASCADE,
			id TEXT NOT NULL,
			type TEXT NOT NULL,
			label TEXT NOT NULL,
			properties TEXT NOT NULL,
			chapter_created INTEGER NOT NULL,
			chapter_updated INTEGER NOT NULL,
			PRIMARY KEY (novel_id, id)
		);
		CREATE TABLE IF NOT EXISTS edges (
			novel_id TEXT NOT NULL REFERENCES sessions(novel_id) ON DELETE CASCADE,
			id TEXT NOT NULL,
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			type TEXT NOT NULL,
			properties TEXT NOT NULL,
			chapter_established INTEGER NOT NULL,
			chapter_updated INTEGER NOT NULL,
			PRIMARY KEY (novel_id, id)
		);
		CREATE TABLE IF NOT EXISTS timelines (
			novel_id TEXT NOT NULL REFERENCES sessions(novel_id) ON DELETE CASCADE,
			character_id TEXT NOT NULL,
			baseline TEXT NOT NULL,
			baseline_chapter INTEGER NOT NULL,
			current_level TEXT NOT NULL,
			current_chapter INTEGER NOT NULL,
			PRIMARY KEY (novel_id, character_id)
		);
		CREATE TABLE IF NOT EXISTS progression_events (
			novel_id TEXT NOT NULL REFERENCES sessions(novel_id) ON DELETE CASCADE,
			character_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			chapter_number INTEGER NOT NULL,
			chapter_id TEXT NOT NULL,
			power_level TEXT NOT NULL,
			previous_level TEXT NOT NULL,
			type TEXT NOT NULL,
			justification TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			PRIMARY KEY (novel_id, character_id, seq)
		);
		CREATE TABLE IF NOT EXISTS entity_snapshots (
			novel_id TEXT NOT NULL REFERENCES sessions(novel_id) ON DELETE CASCADE,
			id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			chapter_id TEXT NOT NULL,
			chapter_number INTEGER NOT NULL,
			sequence INTEGER NOT NULL,
			state TEXT NOT NULL,
			changes TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			PRIMARY KEY (novel_id, id)
		);
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_entity ON entity_snapshots(novel_id, entity_type, entity_id);
		CREATE INDEX IF NOT EXISTS idx_snapshots_chapter ON entity_snapshots(novel_id, chapter_number, sequence);
	`)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to setup database: %w", err)
	}

	if _, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion); err != nil {
		db.Close()
		return fmt.Errorf("failed to update metadata: %w", err)
	}

	s.logger.Debug("snapshot store opened", zap.String("path", path))
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.dbPath
}

// SchemaVersion returns the schema version recorded in the database
func (s *Store) SchemaVersion() string {
	var version string
	s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	return version
}

// Save replaces everything stored for the session's novel in one transaction
func (s *Store) Save(ctx context.Context, session *ports.Session) error {
	if session == nil || session.NovelID == "" {
		return errors.New("session without novel id")
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.deleteNovel(session.NovelID); err != nil {
		return err
	}
	if err := tx.insertSession(session); err != nil {
		return err
	}
	for i := range session.Graph.Nodes {
		if err := tx.insertNode(session.NovelID, &session.Graph.Nodes[i]); err != nil {
			return err
		}
	}
	for i := range session.Graph.Edges {
		if err := tx.insertEdge(session.NovelID, &session.Graph.Edges[i]); err != nil {
			return err
		}
	}
	for i := range session.Graph.PowerProgressions {
		if err := tx.insertTimeline(session.NovelID, &session.Graph.PowerProgressions[i]); err != nil {
			return err
		}
	}
	for i := range session.History {
		if err := tx.insertSnapshot(session.NovelID, &session.History[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	s.logger.Info("session saved",
		zap.String("novel", session.NovelID),
		zap.Int("nodes", len(session.Graph.Nodes)),
		zap.Int("edges", len(session.Graph.Edges)),
		zap.Int("snapshots", len(session.History)),
	)
	return nil
}

// Load reads the session stored for novelID
func (s *Store) Load(ctx context.Context, novelID string) (*ports.Session, error) {
	var savedAt, generatedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT saved_at, generated_at FROM sessions WHERE novel_id = ?
	`, novelID).Scan(&savedAt, &generatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ports.ErrSessionNotFound, novelID)
	}
	if err != nil {
		return nil, err
	}

	session := &ports.Session{
		NovelID: novelID,
		SavedAt: time.UnixMilli(savedAt).UTC(),
		Graph: graph.Snapshot{
			NovelID:     novelID,
			GeneratedAt: time.UnixMilli(generatedAt).UTC(),
		},
	}
	if session.Graph.Nodes, err = s.loadNodes(ctx, novelID); err != nil {
		return nil, err
	}
	if session.Graph.Edges, err = s.loadEdges(ctx, novelID); err != nil {
		return nil, err
	}
	if session.Graph.PowerProgressions, err = s.loadTimelines(ctx, novelID); err != nil {
		return nil, err
	}
	if session.History, err = s.loadSnapshots(ctx, novelID); err != nil {
		return nil, err
	}
	return session, nil
}

// List describes every stored session, most recently saved first
func (s *Store) List(ctx context.Context) ([]ports.SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.novel_id, s.saved_at,
			(SELECT COUNT(*) FROM nodes n WHERE n.novel_id = s.novel_id),
			(SELECT COUNT(*) FROM edges e WHERE e.novel_id = s.novel_id),
			(SELECT COUNT(*) FROM entity_snapshots h WHERE h.novel_id = s.novel_id)
		FROM sessions s
		ORDER BY s.saved_at DESC, s.novel_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []ports.SessionInfo
	for rows.Next() {
		var info ports.SessionInfo
		var savedAt int64
		if err := rows.Scan(&info.NovelID, &savedAt, &info.Nodes, &info.Edges, &info.Snapshots); err != nil {
			return nil, err
		}
		info.SavedAt = time.UnixMilli(savedAt).UTC()
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes the session stored for novelID
func (s *Store) Delete(ctx context.Context, novelID string) error {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.deleteNovel(novelID); err != nil {
		return err
	}
	return tx.Commit()
}

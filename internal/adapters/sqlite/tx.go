package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"continuity/internal/domain"
	"continuity/internal/graph"
	"continuity/internal/ports"
	"continuity/internal/statetracker"
)

// sessionTx groups the writes of one Save or Delete
type sessionTx struct {
	tx *sql.Tx
}

func (s *Store) beginTx(ctx context.Context) (*sessionTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sessionTx{tx: tx}, nil
}

// deleteNovel clears every row belonging to novelID
func (t *sessionTx) deleteNovel(novelID string) error {
	for _, table := range []string{"entity_snapshots", "progression_events", "timelines", "edges", "nodes", "sessions"} {
		if _, err := t.tx.Exec(`DELETE FROM `+table+` WHERE novel_id = ?`, novelID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func (t *sessionTx) insertSession(s *ports.Session) error {
	_, err := t.tx.Exec(`
		INSERT INTO sessions (novel_id, saved_at, generated_at)
		VALUES (?, ?, ?)
	`, s.NovelID, s.SavedAt.UnixMilli(), s.Graph.GeneratedAt.UnixMilli())
	return err
}

func (t *sessionTx) insertNode(novelID string, n *graph.Node) error {
	props, err := json.Marshal(n.Properties)
	if err != nil {
		return fmt.Errorf("failed to encode node %s: %w", n.ID, err)
	}
	_, err = t.tx.Exec(`
		INSERT INTO nodes (novel_id, id, type, label, properties, chapter_created, chapter_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, novelID, n.ID, string(n.Type), n.Label, string(props), n.ChapterCreated, n.ChapterUpdated)
	return err
}

func (t *sessionTx) insertEdge(novelID string, e *graph.Edge) error {
	props, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("failed to encode edge %s: %w", e.ID, err)
	}
	_, err = t.tx.Exec(`
		INSERT INTO edges (novel_id, id, source, target, type, properties, chapter_established, chapter_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, novelID, e.ID, e.Source, e.Target, string(e.Type), string(props), e.ChapterEstablished, e.ChapterUpdated)
	return err
}

func (t *sessionTx) insertTimeline(novelID string, tl *graph.PowerTimeline) error {
	_, err := t.tx.Exec(`
		INSERT INTO timelines (novel_id, character_id, baseline, baseline_chapter, current_level, current_chapter)
		VALUES (?, ?, ?, ?, ?, ?)
	`, novelID, tl.CharacterID, tl.Baseline, tl.BaselineChapter, tl.CurrentLevel, tl.CurrentChapter)
	if err != nil {
		return err
	}

	stmt, err := t.tx.Prepare(`
		INSERT INTO progression_events
			(novel_id, character_id, seq, chapter_number, chapter_id, power_level, previous_level, type, justification, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, ev := range tl.Events {
		_, err := stmt.Exec(novelID, tl.CharacterID, i, ev.ChapterNumber, ev.ChapterID,
			ev.PowerLevel, ev.PreviousLevel, string(ev.Type), ev.Justification, ev.Timestamp.UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to insert event %d of %s: %w", i, tl.CharacterID, err)
		}
	}
	return nil
}

func (t *sessionTx) insertSnapshot(novelID string, s *statetracker.Snapshot) error {
	state, err := json.Marshal(s.State)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", s.ID, err)
	}
	changes, err := json.Marshal(s.Changes)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", s.ID, err)
	}
	_, err = t.tx.Exec(`
		INSERT INTO entity_snapshots
			(novel_id, id, entity_type, entity_id, chapter_id, chapter_number, sequence, state, changes, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, novelID, s.ID, string(s.EntityType), s.EntityID, s.ChapterID, s.ChapterNumber,
		s.Sequence, string(state), string(changes), s.Timestamp.UnixMilli())
	return err
}

// Commit commits the transaction
func (t *sessionTx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction
func (t *sessionTx) Rollback() error {
	return t.tx.Rollback()
}

func (s *Store) loadNodes(ctx context.Context, novelID string) ([]graph.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, label, properties, chapter_created, chapter_updated
		FROM nodes WHERE novel_id = ? ORDER BY id
	`, novelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []graph.Node
	for rows.Next() {
		var n graph.Node
		var typ, props string
		if err := rows.Scan(&n.ID, &typ, &n.Label, &props, &n.ChapterCreated, &n.ChapterUpdated); err != nil {
			return nil, err
		}
		n.Type = domain.EntityType(typ)
		if err := json.Unmarshal([]byte(props), &n.Properties); err != nil {
			return nil, fmt.Errorf("failed to decode node %s: %w", n.ID, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *Store) loadEdges(ctx context.Context, novelID string) ([]graph.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, target, type, properties, chapter_established, chapter_updated
		FROM edges WHERE novel_id = ? ORDER BY id
	`, novelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []graph.Edge
	for rows.Next() {
		var e graph.Edge
		var typ, props string
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &typ, &props, &e.ChapterEstablished, &e.ChapterUpdated); err != nil {
			return nil, err
		}
		e.Type = graph.EdgeType(typ)
		if err := json.Unmarshal([]byte(props), &e.Properties); err != nil {
			return nil, fmt.Errorf("failed to decode edge %s: %w", e.ID, err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *Store) loadTimelines(ctx context.Context, novelID string) ([]graph.PowerTimeline, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT character_id, baseline, baseline_chapter, current_level, current_chapter
		FROM timelines WHERE novel_id = ? ORDER BY character_id
	`, novelID)
	if err != nil {
		return nil, err
	}
	var timelines []graph.PowerTimeline
	index := make(map[string]int)
	for rows.Next() {
		var tl graph.PowerTimeline
		if err := rows.Scan(&tl.CharacterID, &tl.Baseline, &tl.BaselineChapter, &tl.CurrentLevel, &tl.CurrentChapter); err != nil {
			rows.Close()
			return nil, err
		}
		index[tl.CharacterID] = len(timelines)
		timelines = append(timelines, tl)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	events, err := s.db.QueryContext(ctx, `
		SELECT character_id, chapter_number, chapter_id, power_level, previous_level, type, justification, timestamp
		FROM progression_events WHERE novel_id = ? ORDER BY character_id, seq
	`, novelID)
	if err != nil {
		return nil, err
	}
	defer events.Close()

	for events.Next() {
		var charID, typ string
		var ts int64
		var ev graph.ProgressionEvent
		if err := events.Scan(&charID, &ev.ChapterNumber, &ev.ChapterID, &ev.PowerLevel,
			&ev.PreviousLevel, &typ, &ev.Justification, &ts); err != nil {
			return nil, err
		}
		i, ok := index[charID]
		if !ok {
			continue
		}
		ev.Type = graph.ProgressionType(typ)
		ev.Timestamp = time.UnixMilli(ts).UTC()
		timelines[i].Events = append(timelines[i].Events, ev)
	}
	return timelines, events.Err()
}

func (s *Store) loadSnapshots(ctx context.Context, novelID string) ([]statetracker.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, chapter_id, chapter_number, sequence, state, changes, timestamp
		FROM entity_snapshots WHERE novel_id = ? ORDER BY chapter_number, sequence
	`, novelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []statetracker.Snapshot
	for rows.Next() {
		var snap statetracker.Snapshot
		var typ, state, changes string
		var ts int64
		if err := rows.Scan(&snap.ID, &typ, &snap.EntityID, &snap.ChapterID, &snap.ChapterNumber,
			&snap.Sequence, &state, &changes, &ts); err != nil {
			return nil, err
		}
		snap.EntityType = domain.EntityType(typ)
		snap.Timestamp = time.UnixMilli(ts).UTC()
		if err := json.Unmarshal([]byte(state), &snap.State); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot %s: %w", snap.ID, err)
		}
		if err := json.Unmarshal([]byte(changes), &snap.Changes); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot %s: %w", snap.ID, err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

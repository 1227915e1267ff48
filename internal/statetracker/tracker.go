// Package statetracker keeps a chapter-addressable history of every tracked
// entity so state can be diffed, queried at any chapter, and rolled back.
//
// Lookups never fail: misses return nil or empty values and callers check.
package statetracker

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/btree"
	"go.uber.org/zap"

	"continuity/internal/domain"
)

// ErrChapterOutOfOrder is returned when a change is recorded for a chapter
// earlier than the entity's latest snapshot
var ErrChapterOutOfOrder = errors.New("chapter out of order")

// Snapshot is a full state capture of one entity at one chapter
type Snapshot struct {
	ID            string            `json:"id"`
	EntityType    domain.EntityType `json:"entityType"`
	EntityID      string            `json:"entityId"`
	ChapterID     string            `json:"chapterId"`
	ChapterNumber int               `json:"chapterNumber"`
	Sequence      int64             `json:"sequence"`
	State         State             `json:"state"`
	Changes       []FieldChange     `json:"changes"`
	Timestamp     time.Time         `json:"timestamp"`
}

func (s *Snapshot) clone() Snapshot {
	c := *s
	c.State = s.State.Clone()
	c.Changes = make([]FieldChange, len(s.Changes))
	for i, ch := range s.Changes {
		c.Changes[i] = FieldChange{Field: ch.Field, OldValue: cloneValue(ch.OldValue), NewValue: cloneValue(ch.NewValue)}
	}
	return c
}

// EntityKey identifies one tracked entity
type EntityKey struct {
	Type domain.EntityType
	ID   string
}

func (k EntityKey) String() string {
	return fmt.Sprintf("%s/%s", k.Type, k.ID)
}

type history struct {
	snapshots      []*Snapshot
	current        State
	currentChapter int
}

// chapterEntry orders snapshots across all entities by chapter then sequence
type chapterEntry struct {
	chapter  int
	sequence int64
	snap     *Snapshot
}

func chapterLess(a, b chapterEntry) bool {
	if a.chapter != b.chapter {
		return a.chapter < b.chapter
	}
	return a.sequence < b.sequence
}

// Summary reports tracker totals
type Summary struct {
	EntitiesByType map[domain.EntityType]int `json:"entitiesByType"`
	TotalEntities  int                       `json:"totalEntities"`
	TotalSnapshots int                       `json:"totalSnapshots"`
}

// Tracker records entity snapshots. It is not safe for concurrent use; the
// owning engine serializes access.
type Tracker struct {
	histories map[EntityKey]*history
	byChapter *btree.BTreeG[chapterEntry]
	sequence  int64
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Tracker
type Option func(*Tracker)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// New creates an empty Tracker
func New(opts ...Option) *Tracker {
	t := &Tracker{
		histories: make(map[EntityKey]*history),
		byChapter: btree.NewBTreeG(chapterLess),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TrackChange appends a snapshot of current for the entity. The diff is taken
// against previous; when previous is nil every key is recorded as new.
func (t *Tracker) TrackChange(entityType domain.EntityType, entityID, chapterID string, chapterNumber int, current, previous State) (*Snapshot, error) {
	key := EntityKey{Type: entityType, ID: entityID}
	h := t.histories[key]
	if h != nil && chapterNumber < h.currentChapter {
		return nil, fmt.Errorf("%w: %s at chapter %d, latest is %d", ErrChapterOutOfOrder, key, chapterNumber, h.currentChapter)
	}
	if h == nil {
		h = &history{}
		t.histories[key] = h
	}

	cur := current.Clone()
	if cur == nil {
		cur = State{}
	}
	var prev State
	if previous != nil {
		prev = previous.Clone()
	}

	t.sequence++
	snap := &Snapshot{
		ID:            uuid.NewString(),
		EntityType:    entityType,
		EntityID:      entityID,
		ChapterID:     chapterID,
		ChapterNumber: chapterNumber,
		Sequence:      t.sequence,
		State:         cur,
		Changes:       Diff(prev, cur),
		Timestamp:     t.now().UTC(),
	}
	t.insert(h, snap)

	t.logger.Debug("tracked change",
		zap.String("entity", key.String()),
		zap.Int("chapter", chapterNumber),
		zap.Int("changes", len(snap.Changes)),
	)

	out := snap.clone()
	return &out, nil
}

func (t *Tracker) insert(h *history, snap *Snapshot) {
	h.snapshots = append(h.snapshots, snap)
	h.current = snap.State
	h.currentChapter = snap.ChapterNumber
	t.byChapter.Set(chapterEntry{chapter: snap.ChapterNumber, sequence: snap.Sequence, snap: snap})
}

// CurrentState returns a copy of the entity's latest state, or nil
func (t *Tracker) CurrentState(entityType domain.EntityType, entityID string) State {
	h := t.histories[EntityKey{Type: entityType, ID: entityID}]
	if h == nil {
		return nil
	}
	return h.current.Clone()
}

// CurrentChapter returns the chapter of the entity's latest snapshot
func (t *Tracker) CurrentChapter(entityType domain.EntityType, entityID string) (int, bool) {
	h := t.histories[EntityKey{Type: entityType, ID: entityID}]
	if h == nil || len(h.snapshots) == 0 {
		return 0, false
	}
	return h.currentChapter, true
}

// StateAtChapter returns the state of the latest snapshot at or before
// chapterNumber, or nil
func (t *Tracker) StateAtChapter(entityType domain.EntityType, entityID string, chapterNumber int) State {
	snap := t.snapshotAt(EntityKey{Type: entityType, ID: entityID}, chapterNumber)
	if snap == nil {
		return nil
	}
	return snap.State.Clone()
}

func (t *Tracker) snapshotAt(key EntityKey, chapterNumber int) *Snapshot {
	h := t.histories[key]
	if h == nil {
		return nil
	}
	// snapshots are ordered by chapter
	i := sort.Search(len(h.snapshots), func(i int) bool {
		return h.snapshots[i].ChapterNumber > chapterNumber
	})
	if i == 0 {
		return nil
	}
	return h.snapshots[i-1]
}

// History returns copies of every snapshot of the entity in order
func (t *Tracker) History(entityType domain.EntityType, entityID string) []Snapshot {
	h := t.histories[EntityKey{Type: entityType, ID: entityID}]
	if h == nil {
		return nil
	}
	out := make([]Snapshot, len(h.snapshots))
	for i, s := range h.snapshots {
		out[i] = s.clone()
	}
	return out
}

// ChangesInChapter returns every snapshot recorded for chapterNumber across
// all entities, in recording order. A non-empty chapterID also has to match.
func (t *Tracker) ChangesInChapter(chapterID string, chapterNumber int) []Snapshot {
	var out []Snapshot
	t.byChapter.Ascend(chapterEntry{chapter: chapterNumber}, func(e chapterEntry) bool {
		if e.chapter != chapterNumber {
			return false
		}
		if chapterID == "" || e.snap.ChapterID == chapterID {
			out = append(out, e.snap.clone())
		}
		return true
	})
	return out
}

// RollbackToChapter discards every snapshot after chapterNumber and resets
// the entity's current state to the one at that chapter. ok is false, and
// nothing changes, when no snapshot exists at or before chapterNumber.
func (t *Tracker) RollbackToChapter(entityType domain.EntityType, entityID string, chapterNumber int) (state State, ok bool) {
	key := EntityKey{Type: entityType, ID: entityID}
	target := t.snapshotAt(key, chapterNumber)
	if target == nil {
		return nil, false
	}

	h := t.histories[key]
	keep := 0
	for i, s := range h.snapshots {
		if s == target {
			keep = i + 1
			break
		}
	}
	for _, s := range h.snapshots[keep:] {
		t.byChapter.Delete(chapterEntry{chapter: s.ChapterNumber, sequence: s.Sequence})
	}
	dropped := len(h.snapshots) - keep
	h.snapshots = h.snapshots[:keep:keep]
	h.current = target.State
	h.currentChapter = target.ChapterNumber

	t.logger.Info("rolled back entity",
		zap.String("entity", key.String()),
		zap.Int("chapter", chapterNumber),
		zap.Int("dropped", dropped),
	)
	return target.State.Clone(), true
}

// Entities lists tracked entities of one type (all types when empty), sorted
func (t *Tracker) Entities(entityType domain.EntityType) []EntityKey {
	var keys []EntityKey
	for k := range t.histories {
		if entityType == "" || k.Type == entityType {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}

// Summary counts tracked entities by type and total snapshots
func (t *Tracker) Summary() Summary {
	s := Summary{EntitiesByType: make(map[domain.EntityType]int)}
	for k, h := range t.histories {
		if len(h.snapshots) == 0 {
			continue
		}
		s.EntitiesByType[k.Type]++
		s.TotalEntities++
		s.TotalSnapshots += len(h.snapshots)
	}
	return s
}

// Restore replaces the tracker contents with persisted snapshots
func (t *Tracker) Restore(snapshots []Snapshot) {
	t.histories = make(map[EntityKey]*history)
	t.byChapter = btree.NewBTreeG(chapterLess)
	t.sequence = 0

	sorted := make([]Snapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ChapterNumber != sorted[j].ChapterNumber {
			return sorted[i].ChapterNumber < sorted[j].ChapterNumber
		}
		return sorted[i].Sequence < sorted[j].Sequence
	})

	for i := range sorted {
		snap := sorted[i].clone()
		t.sequence++
		snap.Sequence = t.sequence
		key := EntityKey{Type: snap.EntityType, ID: snap.EntityID}
		h := t.histories[key]
		if h == nil {
			h = &history{}
			t.histories[key] = h
		}
		t.insert(h, &snap)
	}
	t.logger.Debug("restored tracker", zap.Int("snapshots", len(sorted)))
}

// Snapshots returns every snapshot across all entities ordered by chapter,
// suitable for persistence
func (t *Tracker) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, t.byChapter.Len())
	t.byChapter.Scan(func(e chapterEntry) bool {
		out = append(out, e.snap.clone())
		return true
	})
	return out
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"continuity/internal/domain"
	"continuity/internal/graph"
	"continuity/internal/ports"
	"continuity/internal/statetracker"
)

var savedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func openStore(t testing.TB) *Store {
	t.Helper()
	s := NewStore()
	require.NoError(t, s.Open(filepath.Join(t.TempDir(), "sessions.db")))
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSession(novelID string) *ports.Session {
	c1 := graph.NodeID(domain.EntityCharacter, "c1")
	c2 := graph.NodeID(domain.EntityCharacter, "c2")
	return &ports.Session{
		NovelID: novelID,
		SavedAt: savedAt,
		Graph: graph.Snapshot{
			NovelID:     novelID,
			GeneratedAt: savedAt,
			Nodes: []graph.Node{
				{ID: c1, Type: domain.EntityCharacter, Label: "Lin Feng",
					Properties:     graph.NodeProperties{EntityID: "c1", PowerLevel: "Core Formation", Status: "Alive"},
					ChapterCreated: 1, ChapterUpdated: 6},
				{ID: c2, Type: domain.EntityCharacter, Label: "Mei",
					Properties:     graph.NodeProperties{EntityID: "c2", Extra: map[string]string{"sect": "Azure Cloud"}},
					ChapterCreated: 2, ChapterUpdated: 2},
			},
			Edges: []graph.Edge{
				{ID: graph.EdgeID(graph.EdgeRelationship, c1, c2), Source: c1, Target: c2, Type: graph.EdgeRelationship,
					Properties: graph.EdgeProperties{Label: "rival"}, ChapterEstablished: 2, ChapterUpdated: 6},
			},
			PowerProgressions: []graph.PowerTimeline{
				{
					CharacterID: "c1", Baseline: "Foundation Building", BaselineChapter: 5,
					CurrentLevel: "Core Formation", CurrentChapter: 6,
					Events: []graph.ProgressionEvent{{
						ChapterNumber: 6, ChapterID: "ch6", PowerLevel: "Core Formation",
						PreviousLevel: "Foundation Building", Type: graph.ProgressionBreakthrough,
						Justification: "broke through", Timestamp: savedAt,
					}},
				},
			},
		},
		History: []statetracker.Snapshot{
			{ID: "s1", EntityType: domain.EntityCharacter, EntityID: "c1", ChapterID: "ch5", ChapterNumber: 5, Sequence: 1,
				State: statetracker.State{"currentCultivation": "Foundation Building"}, Timestamp: savedAt},
			{ID: "s2", EntityType: domain.EntityCharacter, EntityID: "c1", ChapterID: "ch6", ChapterNumber: 6, Sequence: 2,
				State: statetracker.State{"currentCultivation": "Core Formation"},
				Changes: []statetracker.FieldChange{{Field: "currentCultivation", OldValue: "Foundation Building", NewValue: "Core Formation"}},
				Timestamp: savedAt},
		},
	}
}

func TestStore_OpenRecordsSchemaVersion(t *testing.T) {
	s := openStore(t)
	assert.Equal(t, schemaVersion, s.SchemaVersion())
	assert.Equal(t, "sessions.db", filepath.Base(s.Path()))
}

func TestStore_DefaultPathUsesXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	assert.Equal(t, "/data/continuity/sessions.db", DefaultPath())
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleSession("novel-1")))

	got, err := s.Load(ctx, "novel-1")
	require.NoError(t, err)

	assert.Equal(t, savedAt, got.SavedAt)
	require.Len(t, got.Graph.Nodes, 2)
	assert.Equal(t, "Core Formation", got.Graph.Nodes[0].Properties.PowerLevel)
	assert.Equal(t, "Azure Cloud", got.Graph.Nodes[1].Properties.Extra["sect"])
	require.Len(t, got.Graph.Edges, 1)
	assert.Equal(t, "rival", got.Graph.Edges[0].Properties.Label)

	require.Len(t, got.Graph.PowerProgressions, 1)
	tl := got.Graph.PowerProgressions[0]
	assert.Equal(t, "Core Formation", tl.CurrentLevel)
	require.Len(t, tl.Events, 1)
	assert.Equal(t, graph.ProgressionBreakthrough, tl.Events[0].Type)
	assert.Equal(t, savedAt, tl.Events[0].Timestamp)

	require.Len(t, got.History, 2)
	assert.Equal(t, "s1", got.History[0].ID)
	assert.Equal(t, "Core Formation", got.History[1].State["currentCultivation"])
	require.Len(t, got.History[1].Changes, 1)
	assert.Equal(t, "Foundation Building", got.History[1].Changes[0].OldValue)
}

func TestStore_SaveReplacesPreviousSession(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleSession("novel-1")))

	smaller := sampleSession("novel-1")
	smaller.Graph.Nodes = smaller.Graph.Nodes[:1]
	smaller.Graph.Edges = nil
	smaller.History = smaller.History[:1]
	require.NoError(t, s.Save(ctx, smaller))

	got, err := s.Load(ctx, "novel-1")
	require.NoError(t, err)
	assert.Len(t, got.Graph.Nodes, 1)
	assert.Empty(t, got.Graph.Edges)
	assert.Len(t, got.History, 1)
}

func TestStore_LoadMissing(t *testing.T) {
	s := openStore(t)
	_, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestStore_SaveRejectsAnonymousSession(t *testing.T) {
	s := openStore(t)
	assert.Error(t, s.Save(context.Background(), &ports.Session{}))
	assert.Error(t, s.Save(context.Background(), nil))
}

func TestStore_ListAndDelete(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	older := sampleSession("novel-a")
	older.SavedAt = savedAt.Add(-time.Hour)
	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, sampleSession("novel-b")))

	infos, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "novel-b", infos[0].NovelID)
	assert.Equal(t, 2, infos[0].Nodes)
	assert.Equal(t, 1, infos[0].Edges)
	assert.Equal(t, 2, infos[0].Snapshots)

	require.NoError(t, s.Delete(ctx, "novel-b"))
	infos, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "novel-a", infos[0].NovelID)

	_, err = s.Load(ctx, "novel-b")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestStore_SessionsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	s := NewStore()
	require.NoError(t, s.Open(path))
	require.NoError(t, s.Save(ctx, sampleSession("novel-1")))
	require.NoError(t, s.Close())

	reopened := NewStore()
	require.NoError(t, reopened.Open(path))
	defer reopened.Close()

	got, err := reopened.Load(ctx, "novel-1")
	require.NoError(t, err)
	assert.Len(t, got.History, 2)
}

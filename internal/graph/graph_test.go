package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"continuity/internal/domain"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func testNovel() *domain.NovelState {
	return &domain.NovelState{
		ID:             "novel-1",
		Title:          "Sword Heart",
		PowerCategory:  "cultivation",
		CurrentRealmID: "r1",
		Realms:         []domain.Realm{{ID: "r1", Name: "Mortal Realm"}},
		Characters: []domain.Character{
			{
				ID: "c1", Name: "Lin Feng", IsProtagonist: true,
				CurrentCultivation: "Foundation Building", Status: domain.StatusAlive,
				Relationships: []domain.Relationship{{CharacterID: "c2", Type: "friend", History: "grew up together"}},
				ItemIDs:       []string{"i1"}, TechniqueIDs: []string{"t1"}, LocationID: "l1",
				FirstChapter: 1, LastUpdatedChapter: 5,
			},
			{
				ID: "c2", Name: "Mei", CurrentCultivation: "Qi Refining", Status: domain.StatusAlive,
				ItemIDs: []string{"missing"}, FirstChapter: 2, LastUpdatedChapter: 4,
			},
			{
				ID: "c3", Name: "Elder Zhao", CurrentCultivation: "Core Formation", Status: domain.StatusDeceased,
				FirstChapter: 1, LastUpdatedChapter: 3,
			},
		},
		Items:       []domain.Item{{ID: "i1", Name: "Jade Sword", Category: "weapon"}},
		Techniques:  []domain.Technique{{ID: "t1", Name: "Flowing Cloud Palm", Type: "martial"}},
		Locations:   []domain.Location{{ID: "l1", Name: "Azure Sect", Type: "sect"}},
		Antagonists: []domain.Antagonist{{ID: "a1", Name: "Blood Demon", PowerLevel: "Nascent Soul"}},
		WorldRules:  []domain.WorldRule{{ID: "w1", Category: "magic", Title: "Flight", Content: "Cultivators can fly at Core Formation."}},
	}
}

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	g := New(WithClock(fixedNow))
	g.Initialize(testNovel())
	return g
}

func TestInitialize_BuildsNodesAndEdges(t *testing.T) {
	g := newTestGraph(t)

	stats := g.Stats()
	assert.Equal(t, 8, stats.Nodes)
	assert.Equal(t, 3, stats.NodesByType[domain.EntityCharacter])
	assert.Equal(t, 4, stats.Edges, "dangling item reference must be skipped")
	assert.Equal(t, 1, stats.EdgesByType[EdgeRelationship])
	assert.Equal(t, 1, stats.EdgesByType[EdgePossesses])
	assert.Equal(t, 1, stats.EdgesByType[EdgeMasters])
	assert.Equal(t, 1, stats.EdgesByType[EdgeLocatedIn])
	assert.Equal(t, 3, stats.Timelines)
	assert.Zero(t, stats.Events)

	n, ok := g.Node(domain.EntityCharacter, "c1")
	require.True(t, ok)
	assert.Equal(t, "character_c1", n.ID)
	assert.Equal(t, "Foundation Building", n.Properties.PowerLevel)
	assert.Equal(t, "true", n.Properties.Extra["protagonist"])

	tl, ok := g.PowerProgression("c1")
	require.True(t, ok)
	assert.Equal(t, "Foundation Building", tl.Baseline)
	assert.Equal(t, "Foundation Building", tl.CurrentLevel)
	assert.Empty(t, tl.Events)
}

func TestInitialize_Idempotent(t *testing.T) {
	g := New(WithClock(fixedNow))
	state := testNovel()

	g.Initialize(state)
	first := g.Snapshot()
	g.Initialize(state)
	second := g.Snapshot()

	assert.Equal(t, first.Nodes, second.Nodes)
	assert.Equal(t, first.Edges, second.Edges)
	assert.Equal(t, first.PowerProgressions, second.PowerProgressions)
}

func TestInitialize_ReplacesInsteadOfMerging(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.AddOrUpdateRelationship("c1", "c3", "mentor", "", "", 6)
	require.NoError(t, err)
	require.NoError(t, g.UpdatePowerLevel("c1", "Core Formation", "ch6", 6, ProgressionBreakthrough, ""))

	g.Initialize(testNovel())

	assert.Equal(t, 4, g.Stats().Edges)
	level, _ := g.CharacterPowerLevel("c1")
	assert.Equal(t, "Foundation Building", level)
}

func TestAddOrUpdateRelationship_DeterministicEdge(t *testing.T) {
	g := newTestGraph(t)

	created, err := g.AddOrUpdateRelationship("c1", "c3", "rival", "first duel", "", 6)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = g.AddOrUpdateRelationship("c1", "c3", "rival", "second duel", "grudge", 7)
	require.NoError(t, err)
	assert.False(t, created)

	var rivals []Edge
	for _, e := range g.CharacterRelationships("c3") {
		if e.Type == EdgeRelationship {
			rivals = append(rivals, e)
		}
	}
	require.Len(t, rivals, 1)
	assert.Equal(t, EdgeID(EdgeRelationship, "character_c1", "character_c3"), rivals[0].ID)
	assert.Equal(t, "second duel", rivals[0].Properties.History)
	assert.Equal(t, "grudge", rivals[0].Properties.Impact)
	assert.Equal(t, 6, rivals[0].ChapterEstablished)
	assert.Equal(t, 7, rivals[0].ChapterUpdated)
}

func TestAddOrUpdateRelationship_UnknownCharacter(t *testing.T) {
	g := newTestGraph(t)

	_, err := g.AddOrUpdateRelationship("c1", "ghost", "friend", "", "", 1)
	assert.ErrorIs(t, err, ErrUnknownCharacter)
	_, err = g.AddOrUpdateRelationship("ghost", "c1", "friend", "", "", 1)
	assert.ErrorIs(t, err, ErrUnknownCharacter)
}

func TestUpdatePowerLevel(t *testing.T) {
	g := newTestGraph(t)

	require.NoError(t, g.UpdatePowerLevel("c1", "Core Formation", "ch6", 6, ProgressionBreakthrough, "he broke through"))
	require.NoError(t, g.UpdatePowerLevel("c1", "Peak Core Formation", "ch9", 9, ProgressionGradual, ""))

	tl, ok := g.PowerProgression("c1")
	require.True(t, ok)
	require.Len(t, tl.Events, 2)
	assert.Equal(t, "Foundation Building", tl.Events[0].PreviousLevel)
	assert.Equal(t, ProgressionBreakthrough, tl.Events[0].Type)
	assert.Equal(t, "Core Formation", tl.Events[1].PreviousLevel)
	assert.Equal(t, "Peak Core Formation", tl.CurrentLevel)
	assert.Equal(t, 9, tl.CurrentChapter)
	assert.Equal(t, "Foundation Building", tl.Baseline)

	n, _ := g.Node(domain.EntityCharacter, "c1")
	assert.Equal(t, "Peak Core Formation", n.Properties.PowerLevel)
	assert.Equal(t, 9, n.ChapterUpdated)

	err := g.UpdatePowerLevel("c1", "Nascent Soul", "ch8", 8, ProgressionBreakthrough, "")
	assert.ErrorIs(t, err, ErrChapterOutOfOrder)

	err = g.UpdatePowerLevel("ghost", "Nascent Soul", "ch8", 8, ProgressionBreakthrough, "")
	assert.ErrorIs(t, err, ErrUnknownCharacter)
}

func TestPowerProgression_ReturnsCopy(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.UpdatePowerLevel("c1", "Core Formation", "ch6", 6, ProgressionBreakthrough, ""))

	tl, _ := g.PowerProgression("c1")
	tl.Events[0].PowerLevel = "tampered"

	again, _ := g.PowerProgression("c1")
	assert.Equal(t, "Core Formation", again.Events[0].PowerLevel)
}

func TestQueries(t *testing.T) {
	g := newTestGraph(t)

	n, ok := g.FindEntityByName("  lin FENG ", "")
	require.True(t, ok)
	assert.Equal(t, "character_c1", n.ID)

	_, ok = g.FindEntityByName("Lin", domain.EntityCharacter)
	assert.False(t, ok, "no fuzzy fallback")

	_, ok = g.FindEntityByName("Jade Sword", domain.EntityCharacter)
	assert.False(t, ok, "type filter applies")

	items := g.EntitiesByType(domain.EntityItem)
	require.Len(t, items, 1)
	assert.Equal(t, "Jade Sword", items[0].Label)

	assert.Len(t, g.CharacterRelationships("c1"), 4)
	assert.Len(t, g.CharacterRelationships("c2"), 1)
	assert.Empty(t, g.CharacterRelationships("c3"))

	_, ok = g.CharacterPowerLevel("ghost")
	assert.False(t, ok)
}

func TestMissingReverseRelationships(t *testing.T) {
	g := newTestGraph(t)

	missing := g.MissingReverseRelationships()
	require.Len(t, missing, 1)
	assert.Equal(t, "character_c1", missing[0].Source)
	assert.Equal(t, "character_c2", missing[0].Target)

	_, err := g.AddOrUpdateRelationship("c2", "c1", "friend", "", "", 6)
	require.NoError(t, err)
	assert.Empty(t, g.MissingReverseRelationships())
}

func TestSnapshot_SortedAndDetached(t *testing.T) {
	g := newTestGraph(t)

	s := g.Snapshot()
	assert.Equal(t, "novel-1", s.NovelID)
	assert.Equal(t, fixedNow(), s.GeneratedAt)
	for i := 1; i < len(s.Nodes); i++ {
		assert.Less(t, s.Nodes[i-1].ID, s.Nodes[i].ID)
	}
	for i := 1; i < len(s.Edges); i++ {
		assert.Less(t, s.Edges[i-1].ID, s.Edges[i].ID)
	}

	s.Nodes[0].Label = "tampered"
	assert.NotEqual(t, "tampered", g.Snapshot().Nodes[0].Label)
}

func TestRestoreTimelines(t *testing.T) {
	src := newTestGraph(t)
	require.NoError(t, src.UpdatePowerLevel("c1", "Core Formation", "ch6", 6, ProgressionBreakthrough, "broke through"))
	require.NoError(t, src.UpdatePowerLevel("c2", "Foundation Building", "ch7", 7, ProgressionGradual, ""))
	saved := src.Snapshot().PowerProgressions
	saved = append(saved, PowerTimeline{CharacterID: "ghost", Events: []ProgressionEvent{{ChapterNumber: 1, PowerLevel: "x"}}})

	dst := newTestGraph(t)
	applied := dst.RestoreTimelines(saved)

	assert.Equal(t, 2, applied)
	level, _ := dst.CharacterPowerLevel("c1")
	assert.Equal(t, "Core Formation", level)
	tl, _ := dst.PowerProgression("c1")
	require.Len(t, tl.Events, 1)
	assert.Equal(t, "broke through", tl.Events[0].Justification)
}

func TestPowerTimeline_LevelBefore(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.UpdatePowerLevel("c1", "Core Formation", "ch6", 6, ProgressionBreakthrough, ""))
	require.NoError(t, g.UpdatePowerLevel("c1", "Nascent Soul", "ch12", 12, ProgressionBreakthrough, ""))
	tl, _ := g.PowerProgression("c1")

	tests := []struct {
		chapter   int
		wantLevel string
		wantSince int
	}{
		{3, "Foundation Building", 5},
		{6, "Foundation Building", 5},
		{7, "Core Formation", 6},
		{12, "Core Formation", 6},
		{13, "Nascent Soul", 12},
	}
	for _, tt := range tests {
		level, since := tl.LevelBefore(tt.chapter)
		assert.Equal(t, tt.wantLevel, level, "chapter %d", tt.chapter)
		assert.Equal(t, tt.wantSince, since, "chapter %d", tt.chapter)
	}
}

func TestSetBaseline(t *testing.T) {
	state := testNovel()
	state.Characters[1].CurrentCultivation = "unknown"
	g := New(WithClock(fixedNow))
	g.Initialize(state)

	assert.False(t, g.SetBaseline("c1", "Nascent Soul", 6), "known levels only move through UpdatePowerLevel")
	assert.False(t, g.SetBaseline("nobody", "Qi Refining", 6))

	require.True(t, g.SetBaseline("c2", "Qi Refining", 6))
	tl, _ := g.PowerProgression("c2")
	assert.Equal(t, "Qi Refining", tl.Baseline)
	assert.Equal(t, "Qi Refining", tl.CurrentLevel)
	assert.Empty(t, tl.Events)
	node, _ := g.Node(domain.EntityCharacter, "c2")
	assert.Equal(t, "Qi Refining", node.Properties.PowerLevel)
	assert.Equal(t, 6, node.ChapterUpdated)

	assert.False(t, g.SetBaseline("c2", "Core Formation", 7), "baseline is seeded once")
}

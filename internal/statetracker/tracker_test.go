package statetracker

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"continuity/internal/domain"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func track(t *testing.T, tr *Tracker, id string, chapter int, cur, prev State) *Snapshot {
	t.Helper()
	snap, err := tr.TrackChange(domain.EntityCharacter, id, "ch"+strconv.Itoa(chapter), chapter, cur, prev)
	require.NoError(t, err)
	return snap
}

func TestTrackChange_DiffAgainstPrevious(t *testing.T) {
	tr := New(WithClock(fixedClock()))

	prev := State{"name": "Lin", "cultivation": "Qi Refining", "skills": []any{"sword"}}
	cur := State{"name": "Lin", "cultivation": "Foundation Building", "skills": []any{"sword"}, "status": "Alive"}

	snap := track(t, tr, "c1", 3, cur, prev)

	require.Len(t, snap.Changes, 2)
	assert.Equal(t, "cultivation", snap.Changes[0].Field)
	assert.Equal(t, "Qi Refining", snap.Changes[0].OldValue)
	assert.Equal(t, "Foundation Building", snap.Changes[0].NewValue)
	assert.Equal(t, "status", snap.Changes[1].Field)
	assert.Nil(t, snap.Changes[1].OldValue)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, 3, snap.ChapterNumber)
}

func TestTrackChange_RemovedKey(t *testing.T) {
	tr := New()

	snap := track(t, tr, "c1", 1, State{"a": 1.0}, State{"a": 1.0, "b": "gone"})

	require.Len(t, snap.Changes, 1)
	assert.Equal(t, "b", snap.Changes[0].Field)
	assert.Equal(t, "gone", snap.Changes[0].OldValue)
	assert.Nil(t, snap.Changes[0].NewValue)
}

func TestTrackChange_NoPreviousRecordsAllKeys(t *testing.T) {
	tr := New()

	snap := track(t, tr, "c1", 1, State{"name": "Lin", "status": "Alive"}, nil)

	require.Len(t, snap.Changes, 2)
	for _, ch := range snap.Changes {
		assert.Nil(t, ch.OldValue)
		assert.NotNil(t, ch.NewValue)
	}
}

func TestTrackChange_StoredStateIsDetached(t *testing.T) {
	tr := New()

	skills := []any{"sword"}
	cur := State{"skills": skills, "nested": map[string]any{"k": "v"}}
	track(t, tr, "c1", 1, cur, nil)

	skills[0] = "mutated"
	cur["nested"].(map[string]any)["k"] = "mutated"
	cur["extra"] = true

	got := tr.CurrentState(domain.EntityCharacter, "c1")
	assert.Equal(t, []any{"sword"}, got["skills"])
	assert.Equal(t, map[string]any{"k": "v"}, got["nested"])
	assert.NotContains(t, got, "extra")

	got["skills"] = "changed by caller"
	assert.Equal(t, []any{"sword"}, tr.CurrentState(domain.EntityCharacter, "c1")["skills"])
}

func TestTrackChange_RejectsEarlierChapter(t *testing.T) {
	tr := New()
	track(t, tr, "c1", 5, State{"x": 1.0}, nil)

	_, err := tr.TrackChange(domain.EntityCharacter, "c1", "ch3", 3, State{"x": 2.0}, nil)
	require.ErrorIs(t, err, ErrChapterOutOfOrder)

	// same chapter is allowed
	_, err = tr.TrackChange(domain.EntityCharacter, "c1", "ch5", 5, State{"x": 3.0}, nil)
	require.NoError(t, err)
}

func TestHistory_MonotonicChapters(t *testing.T) {
	tr := New()
	for _, ch := range []int{1, 2, 2, 4, 9} {
		track(t, tr, "c1", ch, State{"chapter": float64(ch)}, nil)
	}

	hist := tr.History(domain.EntityCharacter, "c1")
	require.Len(t, hist, 5)
	for i := 1; i < len(hist); i++ {
		assert.LessOrEqual(t, hist[i-1].ChapterNumber, hist[i].ChapterNumber)
		assert.Less(t, hist[i-1].Sequence, hist[i].Sequence)
	}
}

func TestStateAtChapter(t *testing.T) {
	tr := New()
	track(t, tr, "c1", 1, State{"level": "Qi Refining"}, nil)
	track(t, tr, "c1", 3, State{"level": "Foundation Building"}, nil)
	track(t, tr, "c1", 5, State{"level": "Core Formation"}, nil)

	tests := []struct {
		chapter int
		want    any
	}{
		{0, nil},
		{1, "Qi Refining"},
		{2, "Qi Refining"},
		{3, "Foundation Building"},
		{4, "Foundation Building"},
		{99, "Core Formation"},
	}

	for _, tt := range tests {
		got := tr.StateAtChapter(domain.EntityCharacter, "c1", tt.chapter)
		if tt.want == nil {
			assert.Nil(t, got, "chapter %d", tt.chapter)
			continue
		}
		require.NotNil(t, got, "chapter %d", tt.chapter)
		assert.Equal(t, tt.want, got["level"], "chapter %d", tt.chapter)
	}

	assert.Nil(t, tr.StateAtChapter(domain.EntityCharacter, "missing", 5))
	assert.Nil(t, tr.CurrentState(domain.EntityItem, "c1"))
	assert.Empty(t, tr.History(domain.EntityCharacter, "missing"))
}

func TestRollbackToChapter(t *testing.T) {
	tr := New()
	track(t, tr, "c1", 1, State{"level": "Qi Refining"}, nil)
	track(t, tr, "c1", 3, State{"level": "Foundation Building"}, nil)
	track(t, tr, "c1", 5, State{"level": "Core Formation"}, nil)

	state, ok := tr.RollbackToChapter(domain.EntityCharacter, "c1", 4)
	require.True(t, ok)
	assert.Equal(t, "Foundation Building", state["level"])

	assert.Equal(t, State{"level": "Foundation Building"}, tr.CurrentState(domain.EntityCharacter, "c1"))
	assert.Len(t, tr.History(domain.EntityCharacter, "c1"), 2)
	ch, _ := tr.CurrentChapter(domain.EntityCharacter, "c1")
	assert.Equal(t, 3, ch)
	assert.Empty(t, tr.ChangesInChapter("", 5))

	// recording resumes after the rollback point
	track(t, tr, "c1", 4, State{"level": "Core Formation"}, nil)
	assert.Len(t, tr.History(domain.EntityCharacter, "c1"), 3)
}

func TestRollbackToChapter_Unreachable(t *testing.T) {
	tr := New()
	track(t, tr, "c1", 3, State{"level": "Qi Refining"}, nil)

	state, ok := tr.RollbackToChapter(domain.EntityCharacter, "c1", 2)
	assert.False(t, ok)
	assert.Nil(t, state)
	assert.Len(t, tr.History(domain.EntityCharacter, "c1"), 1)

	_, ok = tr.RollbackToChapter(domain.EntityCharacter, "missing", 10)
	assert.False(t, ok)
}

func TestChangesInChapter(t *testing.T) {
	tr := New()
	track(t, tr, "a", 1, State{"v": 1.0}, nil)
	track(t, tr, "b", 2, State{"v": 1.0}, nil)
	track(t, tr, "a", 2, State{"v": 2.0}, nil)
	_, err := tr.TrackChange(domain.EntityItem, "sword", "other", 2, State{"v": 1.0}, nil)
	require.NoError(t, err)
	track(t, tr, "c", 3, State{"v": 1.0}, nil)

	got := tr.ChangesInChapter("", 2)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].EntityID)
	assert.Equal(t, "a", got[1].EntityID)
	assert.Equal(t, "sword", got[2].EntityID)

	byID := tr.ChangesInChapter("other", 2)
	require.Len(t, byID, 1)
	assert.Equal(t, domain.EntityItem, byID[0].EntityType)

	assert.Empty(t, tr.ChangesInChapter("", 7))
}

func TestSummary(t *testing.T) {
	tr := New()
	track(t, tr, "a", 1, State{}, nil)
	track(t, tr, "a", 2, State{}, nil)
	track(t, tr, "b", 2, State{}, nil)
	_, err := tr.TrackChange(domain.EntityItem, "sword", "ch2", 2, State{}, nil)
	require.NoError(t, err)

	s := tr.Summary()
	assert.Equal(t, 3, s.TotalEntities)
	assert.Equal(t, 4, s.TotalSnapshots)
	assert.Equal(t, 2, s.EntitiesByType[domain.EntityCharacter])
	assert.Equal(t, 1, s.EntitiesByType[domain.EntityItem])
}

func TestRestore(t *testing.T) {
	src := New()
	track(t, src, "a", 1, State{"v": 1.0}, nil)
	track(t, src, "b", 2, State{"v": 1.0}, nil)
	track(t, src, "a", 4, State{"v": 2.0}, State{"v": 1.0})

	dst := New()
	dst.Restore(src.Snapshots())

	assert.Equal(t, src.Summary(), dst.Summary())
	assert.Equal(t, State{"v": 2.0}, dst.CurrentState(domain.EntityCharacter, "a"))
	assert.Len(t, dst.ChangesInChapter("", 2), 1)

	snap := track(t, dst, "b", 5, State{"v": 3.0}, nil)
	assert.Greater(t, snap.Sequence, int64(3))
}

func TestStateOf(t *testing.T) {
	c := domain.Character{ID: "c1", Name: "Lin", CurrentCultivation: "Qi Refining", Skills: []string{"sword"}}

	s, err := StateOf(c)
	require.NoError(t, err)
	assert.Equal(t, "Lin", s["name"])
	assert.Equal(t, []any{"sword"}, s["skills"])
}

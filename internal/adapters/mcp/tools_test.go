package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"continuity/internal/application"
	"continuity/internal/domain"
	"continuity/internal/powerlevel"
)

type stubSource struct {
	state *domain.NovelState
	gen   map[string]*domain.GeneratedChapter
}

func (s *stubSource) LoadNovel(_ context.Context, _ string) (*domain.NovelState, error) {
	return s.state, nil
}

func (s *stubSource) LoadGenerated(_ context.Context, path string) (*domain.GeneratedChapter, error) {
	return s.gen[path], nil
}

func novel() *domain.NovelState {
	return &domain.NovelState{
		ID:             "novel-1",
		PowerCategory:  "cultivation",
		CurrentRealmID: "r1",
		Realms:         []domain.Realm{{ID: "r1", Name: "Mortal Realm"}},
		Characters: []domain.Character{{
			ID: "c1", Name: "Lin Feng", IsProtagonist: true,
			CurrentCultivation: "Foundation Building", Status: domain.StatusAlive,
			FirstChapter: 1, LastUpdatedChapter: 5,
		}},
		Chapters: []domain.Chapter{{ID: "ch5", Number: 5, Content: "Lin Feng meditated."}},
	}
}

func call(t *testing.T, h server.ToolHandlerFunc, args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func loaded(t *testing.T) (*application.Engine, *stubSource) {
	t.Helper()
	engine := application.NewEngine()
	src := &stubSource{state: novel(), gen: map[string]*domain.GeneratedChapter{}}
	text, isErr := call(t, loadNovelHandler(engine, src, nil), map[string]any{"path": "novel.yaml"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Loaded novel-1")
	return engine, src
}

func TestLoadNovel_ResumeWithoutStore(t *testing.T) {
	engine := application.NewEngine()
	src := &stubSource{state: novel()}
	_, isErr := call(t, loadNovelHandler(engine, src, nil), map[string]any{"path": "novel.yaml", "resume": true})
	assert.True(t, isErr)
}

func TestValidatePre(t *testing.T) {
	engine := application.NewEngine()
	text, isErr := call(t, validatePreHandler(engine), nil)
	assert.True(t, isErr, "expected error before a novel is loaded")
	assert.NotEmpty(t, text)

	engine, _ = loaded(t)
	text, isErr = call(t, validatePreHandler(engine), nil)
	require.False(t, isErr, text)

	var report application.Report
	require.NoError(t, json.Unmarshal([]byte(text), &report))
	assert.True(t, report.Valid)
	assert.Equal(t, 6, report.ChapterNumber)
}

func TestValidatePost_InlineChapter(t *testing.T) {
	engine, _ := loaded(t)
	inline := `{
		"chapter": {"id": "ch6", "number": 6, "content": "Lin Feng broke through and condensed his core."},
		"payload": {"characterUpserts": [{"name": "Lin Feng", "set": {"cultivation": "Core Formation"}}]}
	}`

	text, isErr := call(t, validatePostHandler(engine, nil, nil), map[string]any{"chapter": inline})
	require.False(t, isErr, text)

	var out struct {
		Report application.Report        `json:"report"`
		Update *application.UpdateResult `json:"update"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.True(t, out.Report.Valid)
	require.NotNil(t, out.Update)
	assert.Equal(t, 1, out.Update.PowerLevelsUpdated)

	tl, err := engine.PowerTimeline("c1")
	require.NoError(t, err)
	assert.Equal(t, "Core Formation", tl.CurrentLevel)
}

func TestValidatePost_DryRunFromPath(t *testing.T) {
	engine, src := loaded(t)
	src.gen["ch6.yaml"] = &domain.GeneratedChapter{
		Chapter: domain.Chapter{ID: "ch6", Number: 6, Content: "Lin Feng rested."},
		Payload: domain.ExtractionPayload{ChapterID: "ch6", CharacterUpserts: []domain.CharacterUpsert{
			{Name: "Lin Feng", Set: domain.CharacterFields{Cultivation: "Qi Refining"}},
		}},
	}

	text, isErr := call(t, validatePostHandler(engine, src, nil), map[string]any{"path": "ch6.yaml", "dry_run": true})
	require.False(t, isErr, text)
	assert.Contains(t, text, string(domain.IssuePowerRegression))
	assert.Contains(t, text, "dry run")

	tl, err := engine.PowerTimeline("c1")
	require.NoError(t, err)
	assert.Equal(t, "Foundation Building", tl.CurrentLevel)
}

func TestValidatePost_BadArguments(t *testing.T) {
	engine, src := loaded(t)
	h := validatePostHandler(engine, src, nil)

	_, isErr := call(t, h, map[string]any{"path": "a.yaml", "chapter": "{}"})
	assert.True(t, isErr)
	_, isErr = call(t, h, map[string]any{"chapter": "{not json"})
	assert.True(t, isErr)
	_, isErr = call(t, h, map[string]any{})
	assert.True(t, isErr)
}

func TestLevelTools(t *testing.T) {
	levels := powerlevel.NewSystem()

	text, isErr := call(t, parseLevelHandler(levels), map[string]any{"level": "peak Foundation Building"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Foundation Building")
	assert.Contains(t, text, "next stage: Core Formation")

	text, _ = call(t, parseLevelHandler(levels), map[string]any{"level": "Cosmic Emperor"})
	assert.Contains(t, text, "not a known")

	text, isErr = call(t, compareLevelsHandler(levels), map[string]any{"a": "Qi Refining", "b": "Core Formation"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "below")
	assert.Contains(t, text, "+2 stages")

	_, isErr = call(t, compareLevelsHandler(levels), map[string]any{"a": "x", "b": "y", "category": "steampunk"})
	assert.True(t, isErr)

	text, isErr = call(t, validateProgressionHandler(levels), map[string]any{
		"previous": "Core Formation", "current": "Qi Refining", "chapters_elapsed": 4,
	})
	require.False(t, isErr, text)
	assert.Contains(t, text, "invalid")
	assert.Contains(t, text, string(powerlevel.FindingRegression))
}

func TestGraphTools(t *testing.T) {
	engine, _ := loaded(t)

	text, isErr := call(t, graphSnapshotHandler(engine), map[string]any{"stats_only": true})
	require.False(t, isErr, text)
	assert.Contains(t, text, `"nodes": 1`)

	text, isErr = call(t, powerTimelineHandler(engine), map[string]any{"character_id": "c1"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "ch 5  Foundation Building  (baseline)")

	text, isErr = call(t, entityHistoryHandler(engine), map[string]any{"type": "character", "id": "c1", "chapter": 5})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Foundation Building")

	text, isErr = call(t, searchHandler(engine), map[string]any{"query": "lin"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Lin Feng")
}

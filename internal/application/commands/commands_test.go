package commands

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"continuity/internal/application"
	"continuity/internal/domain"
	"continuity/internal/ports"
	"continuity/internal/powerlevel"
)

// memSource serves fixed inputs keyed by path
type memSource struct {
	novels    map[string]*domain.NovelState
	generated map[string]*domain.GeneratedChapter
}

func (s *memSource) LoadNovel(ctx context.Context, path string) (*domain.NovelState, error) {
	n, ok := s.novels[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return n, nil
}

func (s *memSource) LoadGenerated(ctx context.Context, path string) (*domain.GeneratedChapter, error) {
	g, ok := s.generated[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return g, nil
}

// memStore keeps sessions in a map
type memStore struct {
	sessions map[string]*ports.Session
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*ports.Session)}
}

func (s *memStore) Open(string) error { return nil }
func (s *memStore) Close() error      { return nil }

func (s *memStore) Save(ctx context.Context, session *ports.Session) error {
	s.sessions[session.NovelID] = session
	return nil
}

func (s *memStore) Load(ctx context.Context, novelID string) (*ports.Session, error) {
	session, ok := s.sessions[novelID]
	if !ok {
		return nil, ports.ErrSessionNotFound
	}
	return session, nil
}

func (s *memStore) List(ctx context.Context) ([]ports.SessionInfo, error) {
	var out []ports.SessionInfo
	for id, session := range s.sessions {
		out = append(out, ports.SessionInfo{NovelID: id, Snapshots: len(session.History)})
	}
	return out, nil
}

func (s *memStore) Delete(ctx context.Context, novelID string) error {
	delete(s.sessions, novelID)
	return nil
}

func testNovel() *domain.NovelState {
	return &domain.NovelState{
		ID:             "novel-1",
		PowerCategory:  "cultivation",
		CurrentRealmID: "r1",
		Realms:         []domain.Realm{{ID: "r1", Name: "Mortal Realm"}},
		Characters: []domain.Character{
			{
				ID: "c1", Name: "Lin Feng", IsProtagonist: true,
				CurrentCultivation: "Foundation Building", Status: domain.StatusAlive,
				FirstChapter: 1, LastUpdatedChapter: 5,
			},
			{
				ID: "c3", Name: "Elder Zhao", CurrentCultivation: "Core Formation", Status: domain.StatusDeceased,
				FirstChapter: 1, LastUpdatedChapter: 3,
			},
		},
		Techniques: []domain.Technique{{ID: "t1", Name: "Flowing Cloud Palm", Description: "A gentle palm art"}},
		Chapters:   []domain.Chapter{{ID: "ch5", Number: 5, Content: "Lin Feng meditated."}},
	}
}

func testSource() *memSource {
	return &memSource{
		novels: map[string]*domain.NovelState{"novel.yaml": testNovel()},
		generated: map[string]*domain.GeneratedChapter{
			"ch6.yaml": {
				Chapter: domain.Chapter{ID: "ch6", Number: 6, Content: "Lin Feng broke through to Core Formation."},
				Payload: domain.ExtractionPayload{CharacterUpserts: []domain.CharacterUpsert{
					{Name: "Lin Feng", Set: domain.CharacterFields{Cultivation: "Core Formation"}},
				}},
			},
			"ch10.yaml": {
				Chapter: domain.Chapter{ID: "ch10", Number: 10, Content: "Elder Zhao smiled at the gate."},
				Payload: domain.ExtractionPayload{CharacterUpserts: []domain.CharacterUpsert{
					{Name: "Elder Zhao", Set: domain.CharacterFields{Status: domain.StatusAlive}},
				}},
			},
		},
	}
}

func loaded(t *testing.T, store ports.SnapshotStore) *application.Engine {
	t.Helper()
	e := application.NewEngine()
	_, err := NewLoadCommand(e, testSource(), store, "novel.yaml", false).Execute(context.Background())
	require.NoError(t, err)
	return e
}

func TestLoadCommand_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     *LoadCommand
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid",
			cmd:  &LoadCommand{StatePath: "novel.yaml"},
		},
		{
			name:    "empty path",
			cmd:     &LoadCommand{StatePath: " "},
			wantErr: true,
			errMsg:  "state file path is required",
		},
		{
			name:    "resume without store",
			cmd:     &LoadCommand{StatePath: "novel.yaml", Resume: true},
			wantErr: true,
			errMsg:  "requires a snapshot store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errMsg)
					return
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadCommand_Execute(t *testing.T) {
	e := application.NewEngine()

	res, err := NewLoadCommand(e, testSource(), nil, "novel.yaml", false).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "novel-1", res.NovelID)
	assert.Equal(t, 3, res.Nodes)
	assert.Equal(t, 3, res.Snapshots)
	assert.False(t, res.Resumed)

	_, err = NewLoadCommand(e, testSource(), nil, "missing.yaml", false).Execute(context.Background())
	assert.Error(t, err)
}

func TestLoadCommand_ResumeWithoutSavedSession(t *testing.T) {
	e := application.NewEngine()

	res, err := NewLoadCommand(e, testSource(), newMemStore(), "novel.yaml", true).Execute(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Resumed)
}

func TestPreValidateCommand(t *testing.T) {
	e := loaded(t, nil)

	r, err := NewPreValidateCommand(e).Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, r.Valid)
	assert.Equal(t, 6, r.ChapterNumber)
}

func TestPostValidateCommand_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     *PostValidateCommand
		wantErr bool
		errMsg  string
	}{
		{
			name: "path with source",
			cmd:  &PostValidateCommand{source: testSource(), GeneratedPath: "ch6.yaml"},
		},
		{
			name: "in-memory chapter",
			cmd:  &PostValidateCommand{Generated: &domain.GeneratedChapter{}},
		},
		{
			name:    "nothing to read",
			cmd:     &PostValidateCommand{source: testSource()},
			wantErr: true,
			errMsg:  "generated chapter file is required",
		},
		{
			name:    "save dry run",
			cmd:     &PostValidateCommand{source: testSource(), GeneratedPath: "ch6.yaml", DryRun: true, Save: true, store: newMemStore()},
			wantErr: true,
			errMsg:  "cannot save a dry run",
		},
		{
			name:    "save without store",
			cmd:     &PostValidateCommand{source: testSource(), GeneratedPath: "ch6.yaml", Save: true},
			wantErr: true,
			errMsg:  "requires a snapshot store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.ErrorIs(t, err, application.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostValidateCommand_AppliesAndSaves(t *testing.T) {
	store := newMemStore()
	e := loaded(t, store)

	cmd := NewPostValidateCommand(e, testSource(), store, "ch6.yaml")
	cmd.Save = true
	res, err := cmd.Execute(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Report.Valid)
	require.NotNil(t, res.Update)
	assert.Equal(t, 1, res.Update.PowerLevelsUpdated)
	assert.True(t, res.Saved)

	saved, err := store.Load(context.Background(), "novel-1")
	require.NoError(t, err)
	require.Len(t, saved.Graph.PowerProgressions, 2)
	assert.Len(t, saved.History, 4)
}

func TestPostValidateCommand_DryRun(t *testing.T) {
	e := loaded(t, nil)

	cmd := NewPostValidateCommand(e, testSource(), nil, "ch10.yaml")
	cmd.DryRun = true
	res, err := cmd.Execute(context.Background())
	require.NoError(t, err)

	assert.Nil(t, res.Update)
	assert.False(t, res.Report.Valid)
	require.Len(t, res.Report.IssuesOf(domain.SeverityCritical), 1)
	assert.Equal(t, domain.IssueStatusInconsistency, res.Report.IssuesOf(domain.SeverityCritical)[0].Kind)
}

func TestParseLevelCommand(t *testing.T) {
	levels := powerlevel.NewSystem()

	res, err := NewParseLevelCommand(levels, "peak core formation", "").Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Known)
	assert.Equal(t, "Core Formation", res.Stage)
	assert.Equal(t, "Core Formation (Peak)", res.Normalized)
	assert.Equal(t, "Nascent Soul", res.NextStage)

	res, err = NewParseLevelCommand(levels, "something strange", "").Execute(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Known)

	_, err = NewParseLevelCommand(levels, "Adept", "alchemy").Execute(context.Background())
	assert.ErrorIs(t, err, application.ErrInvalidInput)

	_, err = NewParseLevelCommand(levels, "", "").Execute(context.Background())
	assert.ErrorIs(t, err, application.ErrInvalidInput)
}

func TestCompareLevelsCommand(t *testing.T) {
	levels := powerlevel.NewSystem()

	tests := []struct {
		a, b       string
		want       int
		comparable bool
		delta      int
	}{
		{"Qi Refining", "Core Formation", -1, true, 2},
		{"Nascent Soul", "Foundation Building", 1, true, -2},
		{"early Core Formation", "late Core Formation", -1, true, 0},
		{"Core Formation", "a mysterious aura", 0, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			res, err := NewCompareLevelsCommand(levels, tt.a, tt.b, "").Execute(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Comparison)
			assert.Equal(t, tt.comparable, res.Comparable)
			assert.Equal(t, tt.delta, res.StageDelta)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestCheckProgressionCommand(t *testing.T) {
	levels := powerlevel.NewSystem()

	res, err := NewCheckProgressionCommand(levels, "Foundation Building", "Core Formation", 1, true, "").Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = NewCheckProgressionCommand(levels, "Core Formation", "Qi Refining", 4, false, "").Execute(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Valid)

	_, err = NewCheckProgressionCommand(levels, "Core Formation", "Qi Refining", -1, false, "").Execute(context.Background())
	assert.ErrorIs(t, err, application.ErrInvalidInput)
}

func TestHistoryAndRollbackCommands(t *testing.T) {
	store := newMemStore()
	e := loaded(t, store)
	_, err := NewPostValidateCommand(e, testSource(), nil, "ch6.yaml").Execute(context.Background())
	require.NoError(t, err)

	h, err := NewHistoryCommand(e, "character", "c1", 5).Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, h.Snapshots, 2)
	assert.Equal(t, "Foundation Building", h.StateAt["currentCultivation"])

	_, err = NewHistoryCommand(e, "character", "ghost", 0).Execute(context.Background())
	assert.ErrorIs(t, err, application.ErrNotFound)

	_, err = NewHistoryCommand(e, "dragon", "c1", 0).Execute(context.Background())
	assert.ErrorIs(t, err, application.ErrInvalidInput)

	rb, err := NewRollbackCommand(e, store, "character", "c1", 5, true).Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, rb.Saved)
	assert.Equal(t, "Foundation Building", rb.State["currentCultivation"])

	h, err = NewHistoryCommand(e, "character", "c1", 0).Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, h.Snapshots, 1)

	_, err = NewRollbackCommand(e, nil, "character", "c1", 1, false).Execute(context.Background())
	assert.ErrorIs(t, err, application.ErrRollbackUnreachable)
}

func TestSearchCommand(t *testing.T) {
	e := loaded(t, nil)

	results, err := NewSearchCommand(e, "lin", "").Execute(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "Lin Feng", results[0].Node.Label)
	assert.Equal(t, 150, results[0].Score)

	results, err = NewSearchCommand(e, "palm", "technique").Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Flowing Cloud Palm", results[0].Node.Label)

	results, err = NewSearchCommand(e, "x", "").Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = NewSearchCommand(e, "lin", "dragon").Execute(context.Background())
	assert.Error(t, err)
}

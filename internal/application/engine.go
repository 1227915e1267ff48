package application

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"continuity/internal/domain"
	"continuity/internal/graph"
	"continuity/internal/metrics"
	"continuity/internal/ports"
	"continuity/internal/powerlevel"
	"continuity/internal/statetracker"
	"continuity/internal/validation"
)

// Engine is one novel session: the graph, the tracker and the checkers
// built over them. Calls are serialized; the engine is safe to share
// between goroutines.
type Engine struct {
	mu      sync.Mutex
	state   *domain.NovelState
	levels  *powerlevel.System
	graph   *graph.Graph
	tracker *statetracker.Tracker
	updater *graph.Updater
	pre     *validation.PreGenerationValidator
	post    *validation.PostGenerationChecker

	logger         *zap.Logger
	now            func() time.Time
	staleThreshold int
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithLogger sets the logger shared by every component
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLevels replaces the default power level system
func WithLevels(s *powerlevel.System) EngineOption {
	return func(e *Engine) {
		if s != nil {
			e.levels = s
		}
	}
}

// WithStaleThreshold sets the pre-generation stale-context threshold
func WithStaleThreshold(chapters int) EngineOption {
	return func(e *Engine) {
		e.staleThreshold = chapters
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an empty engine; Load must be called before validating
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:         zap.NewNop(),
		now:            time.Now,
		staleThreshold: validation.DefaultStaleThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.levels == nil {
		e.levels = powerlevel.NewSystem(powerlevel.WithLogger(e.logger))
	}

	e.graph = graph.New(graph.WithLogger(e.logger), graph.WithClock(e.now))
	e.tracker = statetracker.New(statetracker.WithLogger(e.logger), statetracker.WithClock(e.now))
	e.updater = graph.NewUpdater(e.graph, e.tracker, e.levels, graph.WithUpdaterLogger(e.logger))

	vopts := []validation.Option{
		validation.WithLogger(e.logger),
		validation.WithClock(e.now),
		validation.WithStaleThreshold(e.staleThreshold),
	}
	e.pre = validation.NewPreGenerationValidator(e.graph, e.tracker, e.levels, vopts...)
	e.post = validation.NewPostGenerationChecker(e.graph, e.levels, vopts...)
	return e
}

// Levels returns the power level system
func (e *Engine) Levels() *powerlevel.System {
	return e.levels
}

// Load rebuilds the graph from state and backfills the tracker with one
// snapshot per entity that has no history yet. A non-nil saved session has
// its tracker history and power timelines replayed. Reloading the same
// novel keeps the session's history; loading another novel discards it.
func (e *Engine) Load(state *domain.NovelState, saved *ports.Session) error {
	if err := ValidateNovelState(state); err != nil {
		return err
	}
	if saved != nil && saved.NovelID != state.ID {
		return &ValidationError{
			Field:   "session",
			Message: fmt.Sprintf("saved session belongs to novel %q, not %q", saved.NovelID, state.ID),
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var timelines []graph.PowerTimeline
	switch {
	case saved != nil:
		e.tracker.Restore(saved.History)
		timelines = saved.Graph.PowerProgressions
	case e.state != nil && e.state.ID == state.ID:
		// reloading keeps the progression recorded in this session
		timelines = e.graph.Snapshot().PowerProgressions
	default:
		e.tracker.Restore(nil)
	}
	e.state = state
	e.graph.Initialize(state)
	replayed := e.graph.RestoreTimelines(timelines)

	backfilled, err := e.backfill(state)
	if err != nil {
		return err
	}

	stats := e.graph.Stats()
	metrics.SetGraphSize(stats.Nodes, stats.Edges)
	metrics.SetTrackedSnapshots(e.tracker.Summary().TotalSnapshots)
	e.logger.Info("novel loaded",
		zap.String("novel", state.ID),
		zap.Int("backfilled", backfilled),
		zap.Int("replayed_events", replayed),
	)
	return nil
}

// backfill records the loaded state of every entity without history
func (e *Engine) backfill(state *domain.NovelState) (int, error) {
	type entity struct {
		t       domain.EntityType
		id      string
		chapter int
		value   any
	}
	var all []entity
	for _, c := range state.Characters {
		all = append(all, entity{domain.EntityCharacter, c.ID, c.LastUpdatedChapter, c})
	}
	for _, it := range state.Items {
		all = append(all, entity{domain.EntityItem, it.ID, 0, it})
	}
	for _, t := range state.Techniques {
		all = append(all, entity{domain.EntityTechnique, t.ID, 0, t})
	}
	for _, l := range state.Locations {
		all = append(all, entity{domain.EntityLocation, l.ID, 0, l})
	}
	for _, a := range state.Antagonists {
		all = append(all, entity{domain.EntityAntagonist, a.ID, 0, a})
	}
	for _, r := range state.WorldRules {
		all = append(all, entity{domain.EntityWorldRule, r.ID, 0, r})
	}

	n := 0
	for _, ent := range all {
		if e.tracker.CurrentState(ent.t, ent.id) != nil {
			continue
		}
		s, err := statetracker.StateOf(ent.value)
		if err != nil {
			return n, fmt.Errorf("snapshot %s %s: %w", ent.t, ent.id, err)
		}
		if _, err := e.tracker.TrackChange(ent.t, ent.id, "", ent.chapter, s, nil); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// State returns the loaded novel state
func (e *Engine) State() (*domain.NovelState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNotLoaded
	}
	return e.state, nil
}

// PreValidate checks readiness for the chapter after the latest one
func (e *Engine) PreValidate() (*validation.Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNotLoaded
	}

	r := e.pre.Validate(e.state)
	recordReport(r)
	return r, nil
}

// PostResult is the outcome of processing one generated chapter
type PostResult struct {
	Report *validation.Report  `json:"report"`
	Update *graph.UpdateResult `json:"update,omitempty"`
}

// PostCheck validates a generated chapter without applying it
func (e *Engine) PostCheck(gen *domain.GeneratedChapter) (*validation.Report, error) {
	if err := validateGenerated(gen); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNotLoaded
	}

	r := e.post.Check(e.state, gen.Chapter, gen.Payload)
	recordReport(r)
	return r, nil
}

// PostProcess validates a generated chapter and then applies it to the
// graph and tracker. The report is computed against the state before the
// chapter; afterwards the session state includes the chapter and its
// updates, so the next chapter is checked against it. An out-of-order
// chapter is rejected before anything changes.
func (e *Engine) PostProcess(gen *domain.GeneratedChapter) (*PostResult, error) {
	if err := validateGenerated(gen); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNotLoaded
	}

	r := e.post.Check(e.state, gen.Chapter, gen.Payload)
	update, err := e.updater.Apply(e.state, gen.Chapter, gen.Payload)
	if err != nil {
		return nil, fmt.Errorf("apply chapter %d: %w", gen.Chapter.Number, err)
	}
	e.state = update.State
	recordReport(r)
	for _, pu := range update.PowerUpdates {
		metrics.RecordPowerUpdate(string(pu.Type))
	}
	stats := e.graph.Stats()
	metrics.SetGraphSize(stats.Nodes, stats.Edges)
	metrics.SetTrackedSnapshots(e.tracker.Summary().TotalSnapshots)

	return &PostResult{Report: r, Update: update}, nil
}

func validateGenerated(gen *domain.GeneratedChapter) error {
	if gen == nil {
		return &ValidationError{Field: "chapter", Message: "generated chapter is required"}
	}
	if err := ValidateChapter(&gen.Chapter); err != nil {
		return err
	}
	if gen.Payload.ChapterNumber != 0 && gen.Payload.ChapterNumber != gen.Chapter.Number {
		return &ValidationError{
			Field:   "payload.chapterNumber",
			Message: fmt.Sprintf("payload is for chapter %d, not %d", gen.Payload.ChapterNumber, gen.Chapter.Number),
		}
	}
	return ValidatePayload(&gen.Payload)
}

func recordReport(r *validation.Report) {
	metrics.RecordReport(string(r.Phase), r.Valid, r.Summary.OverallScore, metrics.IssueCounts{
		Critical: r.Summary.Critical,
		Warnings: r.Summary.Warnings,
		Info:     r.Summary.Info,
	})
}

// History returns every snapshot of one entity
func (e *Engine) History(t domain.EntityType, id string) ([]statetracker.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.tracker.History(t, id)
	if len(h) == 0 {
		return nil, fmt.Errorf("%w: %s %s has no history", ErrNotFound, t, id)
	}
	return h, nil
}

// StateAt returns an entity's state as of a chapter
func (e *Engine) StateAt(t domain.EntityType, id string, chapter int) (statetracker.State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.tracker.StateAtChapter(t, id, chapter)
	if s == nil {
		return nil, fmt.Errorf("%w: %s %s at chapter %d", ErrNotFound, t, id, chapter)
	}
	return s, nil
}

// ChangesInChapter returns every snapshot recorded in a chapter
func (e *Engine) ChangesInChapter(chapter int) []statetracker.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.ChangesInChapter("", chapter)
}

// Rollback discards an entity's snapshots after chapter
func (e *Engine) Rollback(t domain.EntityType, id string, chapter int) (statetracker.State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.tracker.RollbackToChapter(t, id, chapter)
	if !ok {
		return nil, &RollbackError{EntityType: string(t), EntityID: id, Chapter: chapter}
	}
	metrics.SetTrackedSnapshots(e.tracker.Summary().TotalSnapshots)
	return s, nil
}

// Entities lists tracked entities of one type, or all when t is empty
func (e *Engine) Entities(t domain.EntityType) []statetracker.EntityKey {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Entities(t)
}

// TrackerSummary counts tracked entities and snapshots
func (e *Engine) TrackerSummary() statetracker.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Summary()
}

// GraphSnapshot flattens the graph
func (e *Engine) GraphSnapshot() graph.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Snapshot()
}

// GraphStats counts graph nodes and edges
func (e *Engine) GraphStats() graph.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Stats()
}

// PowerTimeline returns a character's power progression
func (e *Engine) PowerTimeline(characterID string) (graph.PowerTimeline, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tl, ok := e.graph.PowerProgression(characterID)
	if !ok {
		return graph.PowerTimeline{}, fmt.Errorf("%w: character %s", ErrNotFound, characterID)
	}
	return tl, nil
}

// FindEntity looks up a graph node by name
func (e *Engine) FindEntity(name string, t domain.EntityType) (graph.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.graph.FindEntityByName(name, t)
	if !ok {
		return graph.Node{}, fmt.Errorf("%w: %s %q", ErrNotFound, t, name)
	}
	return n, nil
}

// Relationships returns the relationship edges leaving a character
func (e *Engine) Relationships(characterID string) []graph.Edge {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.CharacterRelationships(characterID)
}

// Session captures the durable part of the session for a SnapshotStore
func (e *Engine) Session() (*ports.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNotLoaded
	}
	return &ports.Session{
		NovelID: e.state.ID,
		Graph:   e.graph.Snapshot(),
		History: e.tracker.Snapshots(),
		SavedAt: e.now().UTC(),
	}, nil
}

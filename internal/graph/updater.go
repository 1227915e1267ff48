package graph

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"continuity/internal/domain"
	"continuity/internal/powerlevel"
	"continuity/internal/statetracker"
)

// Conflict confidences
const (
	regressionConfidence = 0.9
	rapidConfidence      = 0.7
	statusConfidence     = 0.85
)

// minChaptersBetweenChanges is the rapid-progression threshold
const minChaptersBetweenChanges = 2

// PowerUpdate records one power level write made by the updater
type PowerUpdate struct {
	CharacterID   string          `json:"characterId"`
	CharacterName string          `json:"characterName"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Type          ProgressionType `json:"progressionType"`
	Justification string          `json:"justification,omitempty"`
}

// UpdateResult summarizes one chapter's application to the graph
type UpdateResult struct {
	ChapterNumber        int                      `json:"chapterNumber"`
	EntitiesAdded        int                      `json:"entitiesAdded"`
	EntitiesUpdated      int                      `json:"entitiesUpdated"`
	RelationshipsCreated int                      `json:"relationshipsCreated"`
	RelationshipsUpdated int                      `json:"relationshipsUpdated"`
	PowerLevelsUpdated   int                      `json:"powerLevelsUpdated"`
	PowerUpdates         []PowerUpdate            `json:"powerUpdates,omitempty"`
	NewEntities          []string                 `json:"newEntities,omitempty"`
	Skipped              []string                 `json:"skipped,omitempty"`
	Conflicts            []domain.ValidationIssue `json:"conflicts"`

	// State is the novel state with the chapter and every resolved update
	// folded in. The state passed to Apply is left untouched.
	State *domain.NovelState `json:"-"`
}

// Updater applies extraction payloads to a Graph and a Tracker
type Updater struct {
	graph    *Graph
	tracker  *statetracker.Tracker
	levels   *powerlevel.System
	resolver domain.Resolver
	logger   *zap.Logger
}

// UpdaterOption configures an Updater
type UpdaterOption func(*Updater)

// WithUpdaterLogger sets the logger
func WithUpdaterLogger(l *zap.Logger) UpdaterOption {
	return func(u *Updater) {
		if l != nil {
			u.logger = l
		}
	}
}

// NewUpdater creates an Updater over the given components. Names resolve by
// exact case-insensitive match.
func NewUpdater(g *Graph, t *statetracker.Tracker, levels *powerlevel.System, opts ...UpdaterOption) *Updater {
	u := &Updater{
		graph:    g,
		tracker:  t,
		levels:   levels,
		resolver: domain.ExactResolver,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Apply reconciles the graph and tracker with one chapter's extraction.
// state is the novel state before the chapter; it is not modified, and the
// advanced state is returned in UpdateResult.State. Conflicts
// are detected against the graph before any mutation and never block the
// update. An error is only returned when the chapter is older than history
// already recorded, in which case nothing has been changed.
func (u *Updater) Apply(state *domain.NovelState, chapter domain.Chapter, payload domain.ExtractionPayload) (*UpdateResult, error) {
	if err := u.checkOrder(state, chapter, payload); err != nil {
		return nil, err
	}

	next := state.Clone()
	result := &UpdateResult{
		ChapterNumber: chapter.Number,
		Conflicts:     u.DetectConflicts(state, chapter, payload),
		State:         next,
	}
	category := state.PowerCategory
	candidates := domain.CharacterCandidates(state.Characters)

	for _, up := range payload.CharacterUpserts {
		res := u.resolver.Resolve(up.Name, candidates)
		if !res.Found() {
			if len(res.Ambiguous) > 0 {
				result.Skipped = append(result.Skipped, up.Name)
				u.logger.Debug("ambiguous character name", zap.String("name", up.Name))
				continue
			}
			result.EntitiesAdded++
			result.NewEntities = append(result.NewEntities, up.Name)
			continue
		}
		u.applyCharacter(result, next.Character(res.Match.ID), up, chapter, category, candidates)
	}

	for _, up := range payload.ItemUpdates {
		u.applyItem(result, next, up, chapter)
	}
	for _, up := range payload.TechniqueUpdates {
		u.applyTechnique(result, next, up, chapter)
	}
	for _, up := range payload.WorldRuleUpserts {
		u.applyWorldRule(result, next, up, chapter)
	}
	next.PutChapter(chapter)

	u.logger.Info("chapter applied to graph",
		zap.Int("chapter", chapter.Number),
		zap.Int("entities_added", result.EntitiesAdded),
		zap.Int("entities_updated", result.EntitiesUpdated),
		zap.Int("relationships_created", result.RelationshipsCreated),
		zap.Int("relationships_updated", result.RelationshipsUpdated),
		zap.Int("power_levels_updated", result.PowerLevelsUpdated),
		zap.Int("conflicts", len(result.Conflicts)),
	)
	return result, nil
}

// checkOrder rejects the chapter up front when any resolved character
// already has tracker history or timeline events after it
func (u *Updater) checkOrder(state *domain.NovelState, chapter domain.Chapter, payload domain.ExtractionPayload) error {
	candidates := domain.CharacterCandidates(state.Characters)
	for _, up := range payload.CharacterUpserts {
		res := u.resolver.Resolve(up.Name, candidates)
		if !res.Found() {
			continue
		}
		id := res.Match.ID
		if ch, ok := u.tracker.CurrentChapter(domain.EntityCharacter, id); ok && chapter.Number < ch {
			return fmt.Errorf("%w: %s has history at chapter %d", statetracker.ErrChapterOutOfOrder, id, ch)
		}
		if tl, ok := u.graph.PowerProgression(id); ok {
			if last, ok := tl.LastEvent(); ok && chapter.Number < last.ChapterNumber {
				return fmt.Errorf("%w: %s has power events at chapter %d", ErrChapterOutOfOrder, id, last.ChapterNumber)
			}
		}
	}
	return nil
}

// applyCharacter writes one upsert to the graph and tracker, then replaces
// *current with the updated character
func (u *Updater) applyCharacter(result *UpdateResult, current *domain.Character, up domain.CharacterUpsert, chapter domain.Chapter, category string, candidates []domain.Candidate) {
	original := current.Clone()
	updated := applyUpsert(original, up)
	updated.LastUpdatedChapter = chapter.Number

	if pu, ok := u.classify(&original, up.Set.Cultivation, chapter, category); ok {
		if err := u.graph.UpdatePowerLevel(original.ID, pu.To, chapter.ID, chapter.Number, pu.Type, pu.Justification); err != nil {
			u.logger.Warn("power level not updated", zap.String("character", original.ID), zap.Error(err))
		} else {
			result.PowerLevelsUpdated++
			result.PowerUpdates = append(result.PowerUpdates, pu)
		}
	}

	for _, rel := range up.AddRelationships {
		res := u.resolver.Resolve(rel.TargetName, candidates)
		if !res.Found() {
			result.Skipped = append(result.Skipped, rel.TargetName)
			u.logger.Debug("relationship target not found",
				zap.String("source", original.Name),
				zap.String("target", rel.TargetName),
			)
			continue
		}
		created, err := u.graph.AddOrUpdateRelationship(original.ID, res.Match.ID, rel.Type, rel.History, rel.Impact, chapter.Number)
		if err != nil {
			result.Skipped = append(result.Skipped, rel.TargetName)
			u.logger.Debug("relationship not applied", zap.Error(err))
			continue
		}
		if created {
			result.RelationshipsCreated++
		} else {
			result.RelationshipsUpdated++
		}
		updated = upsertRelationship(updated, domain.Relationship{
			CharacterID: res.Match.ID, Type: rel.Type, History: rel.History, Impact: rel.Impact,
		})
	}

	u.graph.UpdateNode(domain.EntityCharacter, original.ID, NodeUpdate{
		Status:      up.Set.Status,
		Description: up.Set.Personality,
	}, chapter.Number)

	u.track(result, domain.EntityCharacter, original.ID, chapter, updated, original)
	*current = updated
}

// classify decides whether a reported level is a transition and of which kind
func (u *Updater) classify(c *domain.Character, reported string, chapter domain.Chapter, category string) (PowerUpdate, bool) {
	reported = strings.TrimSpace(reported)
	if domain.IsUnknownLevel(reported) {
		return PowerUpdate{}, false
	}
	cached, ok := u.graph.CharacterPowerLevel(c.ID)
	if !ok || strings.EqualFold(strings.TrimSpace(cached), reported) {
		return PowerUpdate{}, false
	}

	if domain.IsUnknownLevel(cached) {
		// nothing to compare against: the first known level seeds the
		// baseline instead of becoming a progression event
		u.graph.SetBaseline(c.ID, reported, chapter.Number)
		return PowerUpdate{}, false
	}

	pu := PowerUpdate{CharacterID: c.ID, CharacterName: c.Name, From: cached, To: reported}

	from := u.levels.Parse(cached, category)
	to := u.levels.Parse(reported, category)
	if !from.Known() || !to.Known() {
		pu.Type = ProgressionGradual
		return pu, true
	}

	switch cmp := powerlevel.CompareLevels(from, to); {
	case cmp > 0:
		pu.Type = ProgressionRegression
		pu.Justification, _ = domain.SentenceWith(chapter.Content, domain.SetbackKeywords)
	case cmp == 0:
		pu.Type = ProgressionStable
	default:
		delta := to.Order - from.Order
		switch {
		case delta > 1:
			pu.Type = ProgressionBreakthrough
		case delta == 1 && domain.ContainsAny(chapter.Content, domain.BreakthroughKeywords):
			pu.Type = ProgressionBreakthrough
		default:
			pu.Type = ProgressionGradual
		}
		if pu.Type == ProgressionBreakthrough {
			pu.Justification, _ = domain.SentenceWith(chapter.Content, domain.BreakthroughKeywords)
		}
	}
	return pu, true
}

func (u *Updater) applyItem(result *UpdateResult, state *domain.NovelState, up domain.EntityUpdate, chapter domain.Chapter) {
	cands := make([]domain.Candidate, len(state.Items))
	for i, it := range state.Items {
		cands[i] = domain.Candidate{ID: it.ID, Name: it.Name}
	}
	res := u.resolver.Resolve(up.Name, cands)
	if !res.Found() {
		result.EntitiesAdded++
		result.NewEntities = append(result.NewEntities, up.Name)
		return
	}
	i := slices.IndexFunc(state.Items, func(it domain.Item) bool { return it.ID == res.Match.ID })
	original := state.Items[i]
	updated := original
	if up.Category != "" {
		updated.Category = up.Category
	}
	if up.Description != "" {
		updated.Description = up.Description
	}
	u.graph.UpdateNode(domain.EntityItem, original.ID, NodeUpdate{Category: up.Category, Description: up.Description}, chapter.Number)
	u.track(result, domain.EntityItem, original.ID, chapter, updated, original)
	state.Items[i] = updated
}

func (u *Updater) applyTechnique(result *UpdateResult, state *domain.NovelState, up domain.EntityUpdate, chapter domain.Chapter) {
	cands := make([]domain.Candidate, len(state.Techniques))
	for i, t := range state.Techniques {
		cands[i] = domain.Candidate{ID: t.ID, Name: t.Name}
	}
	res := u.resolver.Resolve(up.Name, cands)
	if !res.Found() {
		result.EntitiesAdded++
		result.NewEntities = append(result.NewEntities, up.Name)
		return
	}
	i := slices.IndexFunc(state.Techniques, func(t domain.Technique) bool { return t.ID == res.Match.ID })
	original := state.Techniques[i]
	updated := original
	if up.Category != "" {
		updated.Category = up.Category
	}
	if up.Description != "" {
		updated.Description = up.Description
	}
	u.graph.UpdateNode(domain.EntityTechnique, original.ID, NodeUpdate{Category: up.Category, Description: up.Description}, chapter.Number)
	u.track(result, domain.EntityTechnique, original.ID, chapter, updated, original)
	state.Techniques[i] = updated
}

func (u *Updater) applyWorldRule(result *UpdateResult, state *domain.NovelState, up domain.WorldRuleUpsert, chapter domain.Chapter) {
	cands := make([]domain.Candidate, len(state.WorldRules))
	for i, r := range state.WorldRules {
		cands[i] = domain.Candidate{ID: r.ID, Name: r.Title}
	}
	res := u.resolver.Resolve(up.Title, cands)
	if !res.Found() {
		result.EntitiesAdded++
		result.NewEntities = append(result.NewEntities, up.Title)
		return
	}
	i := slices.IndexFunc(state.WorldRules, func(r domain.WorldRule) bool { return r.ID == res.Match.ID })
	original := state.WorldRules[i]
	updated := original
	if up.Category != "" {
		updated.Category = up.Category
	}
	updated.Content = up.Content
	u.graph.UpdateNode(domain.EntityWorldRule, original.ID, NodeUpdate{Category: up.Category, Description: up.Content}, chapter.Number)
	u.track(result, domain.EntityWorldRule, original.ID, chapter, updated, original)
	state.WorldRules[i] = updated
}

// track records a snapshot of updated with before as the previous state
func (u *Updater) track(result *UpdateResult, t domain.EntityType, id string, chapter domain.Chapter, updated, before any) {
	cur, err := statetracker.StateOf(updated)
	if err != nil {
		u.logger.Warn("cannot capture state", zap.String("entity", id), zap.Error(err))
		return
	}
	prev, err := statetracker.StateOf(before)
	if err != nil {
		u.logger.Warn("cannot capture state", zap.String("entity", id), zap.Error(err))
		return
	}
	if _, err := u.tracker.TrackChange(t, id, chapter.ID, chapter.Number, cur, prev); err != nil {
		u.logger.Warn("snapshot not recorded", zap.String("entity", id), zap.Error(err))
		return
	}
	result.EntitiesUpdated++
}

// DetectConflicts flags regressions, rapid progression and status flips in
// the payload against the current graph without mutating anything
func (u *Updater) DetectConflicts(state *domain.NovelState, chapter domain.Chapter, payload domain.ExtractionPayload) []domain.ValidationIssue {
	issues := []domain.ValidationIssue{}
	candidates := domain.CharacterCandidates(state.Characters)
	category := state.PowerCategory

	for _, up := range payload.CharacterUpserts {
		res := u.resolver.Resolve(up.Name, candidates)
		if !res.Found() {
			continue
		}
		c := state.Character(res.Match.ID)
		ref := domain.CharacterRef(c)

		if reported := strings.TrimSpace(up.Set.Cultivation); !domain.IsUnknownLevel(reported) {
			if cached, ok := u.graph.CharacterPowerLevel(c.ID); ok && !domain.IsUnknownLevel(cached) {
				cmp := u.levels.Compare(cached, reported, category)
				if cmp > 0 {
					issues = append(issues, domain.ValidationIssue{
						Kind:          domain.IssuePowerRegression,
						Severity:      domain.SeverityWarning,
						Entity:        ref,
						ChapterNumber: chapter.Number,
						Message:       fmt.Sprintf("%s regressed from %s to %s", c.Name, cached, reported),
						Suggestion:    "Confirm the regression is intended and explained in the chapter.",
						Confidence:    regressionConfidence,
					})
				}
				if cmp < 0 {
					if tl, ok := u.graph.PowerProgression(c.ID); ok {
						if last, ok := tl.LastEvent(); ok && chapter.Number-last.ChapterNumber < minChaptersBetweenChanges {
							issues = append(issues, domain.ValidationIssue{
								Kind:          domain.IssueRapidProgression,
								Severity:      domain.SeverityWarning,
								Entity:        ref,
								ChapterNumber: chapter.Number,
								Message: fmt.Sprintf("%s advanced to %s only %d chapter(s) after reaching %s",
									c.Name, reported, chapter.Number-last.ChapterNumber, last.PowerLevel),
								Suggestion: "Space out power gains or add an intervening event.",
								Confidence: rapidConfidence,
							})
						}
					}
				}
			}
		}

		if s := strings.TrimSpace(up.Set.Status); s != "" && domain.IsDeceased(c.Status) && !domain.IsDeceased(s) {
			issues = append(issues, domain.ValidationIssue{
				Kind:          domain.IssueStatusInconsistency,
				Severity:      domain.SeverityWarning,
				Entity:        ref,
				ChapterNumber: chapter.Number,
				Message:       fmt.Sprintf("%s was %s but is reported as %s", c.Name, c.Status, s),
				Suggestion:    "Check whether the chapter resurrects the character.",
				Confidence:    statusConfidence,
			})
		}
	}
	return issues
}

// applyUpsert returns a copy of c with the reported fields applied
func applyUpsert(c domain.Character, up domain.CharacterUpsert) domain.Character {
	out := c
	out.Skills = append([]string(nil), c.Skills...)
	out.Items = append([]string(nil), c.Items...)
	out.Relationships = append([]domain.Relationship(nil), c.Relationships...)

	if v := strings.TrimSpace(up.Set.Cultivation); v != "" {
		out.CurrentCultivation = v
	}
	if v := strings.TrimSpace(up.Set.Status); v != "" {
		out.Status = v
	}
	if v := strings.TrimSpace(up.Set.Personality); v != "" {
		out.Personality = v
	}
	if v := strings.TrimSpace(up.Set.Notes); v != "" {
		out.Notes = v
	}
	out.Skills = appendUnique(out.Skills, up.AddSkills...)
	out.Items = appendUnique(out.Items, up.AddItems...)
	return out
}

func upsertRelationship(c domain.Character, rel domain.Relationship) domain.Character {
	for i, r := range c.Relationships {
		if r.CharacterID == rel.CharacterID {
			c.Relationships[i] = rel
			return c
		}
	}
	c.Relationships = append(c.Relationships, rel)
	return c
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		dup := false
		for _, existing := range list {
			if domain.SameName(existing, v) {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, v)
		}
	}
	return list
}

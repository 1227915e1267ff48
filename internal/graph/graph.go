// Package graph holds the current-state knowledge graph of a novel: one node
// per entity, typed edges between them, and a power timeline per character.
//
// The graph is derived from the full novel state. Initialize rebuilds it from
// scratch; there is no automatic invalidation, callers re-initialize when the
// underlying state changes.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"continuity/internal/domain"
	"continuity/internal/statetracker"
)

var (
	ErrUnknownCharacter = errors.New("unknown character")
	// ErrChapterOutOfOrder is the tracker sentinel
	ErrChapterOutOfOrder = statetracker.ErrChapterOutOfOrder
)

// Graph is not safe for concurrent use; the owning engine serializes access
type Graph struct {
	novelID   string
	nodes     map[string]*Node
	edges     map[string]*Edge
	timelines map[string]*PowerTimeline
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Graph
type Option func(*Graph)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(g *Graph) {
		g.now = now
	}
}

// New creates an empty graph
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:     make(map[string]*Node),
		edges:     make(map[string]*Edge),
		timelines: make(map[string]*PowerTimeline),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Initialize replaces the whole graph with one derived from state. Calling
// it twice with the same state yields the same graph.
func (g *Graph) Initialize(state *domain.NovelState) {
	g.novelID = state.ID
	g.nodes = make(map[string]*Node)
	g.edges = make(map[string]*Edge)
	g.timelines = make(map[string]*PowerTimeline)

	for i := range state.Characters {
		c := &state.Characters[i]
		extra := map[string]string{}
		if c.IsProtagonist {
			extra["protagonist"] = "true"
		}
		if c.LocationID != "" {
			extra["locationId"] = c.LocationID
		}
		if len(extra) == 0 {
			extra = nil
		}
		g.addNode(domain.EntityCharacter, c.ID, c.Name, NodeProperties{
			PowerLevel:  c.CurrentCultivation,
			Status:      c.Status,
			Description: c.Personality,
			Extra:       extra,
		}, c.FirstChapter, c.LastUpdatedChapter)

		g.timelines[c.ID] = &PowerTimeline{
			CharacterID:     c.ID,
			Baseline:        c.CurrentCultivation,
			BaselineChapter: c.LastUpdatedChapter,
			CurrentLevel:    c.CurrentCultivation,
			CurrentChapter:  c.LastUpdatedChapter,
		}
	}
	for _, it := range state.Items {
		props := NodeProperties{Category: it.Category, Description: it.Description}
		if it.Powers != "" {
			props.Extra = map[string]string{"powers": it.Powers}
		}
		g.addNode(domain.EntityItem, it.ID, it.Name, props, 0, 0)
	}
	for _, t := range state.Techniques {
		props := NodeProperties{Category: t.Category, Description: t.Description}
		if t.Type != "" {
			props.Extra = map[string]string{"type": t.Type}
		}
		g.addNode(domain.EntityTechnique, t.ID, t.Name, props, 0, 0)
	}
	for _, l := range state.Locations {
		g.addNode(domain.EntityLocation, l.ID, l.Name, NodeProperties{Category: l.Type, Description: l.Description}, 0, 0)
	}
	for _, a := range state.Antagonists {
		g.addNode(domain.EntityAntagonist, a.ID, a.Name, NodeProperties{
			PowerLevel:  a.PowerLevel,
			Status:      a.Status,
			Category:    a.Type,
			Description: a.Description,
		}, 0, 0)
	}
	for _, r := range state.WorldRules {
		g.addNode(domain.EntityWorldRule, r.ID, r.Title, NodeProperties{Category: r.Category, Description: r.Content}, 0, 0)
	}

	skipped := 0
	for i := range state.Characters {
		c := &state.Characters[i]
		src := NodeID(domain.EntityCharacter, c.ID)
		for _, rel := range c.Relationships {
			if !g.linkTo(src, EdgeRelationship, domain.EntityCharacter, rel.CharacterID, EdgeProperties{
				Label: rel.Type, History: rel.History, Impact: rel.Impact,
			}, c.FirstChapter) {
				skipped++
			}
		}
		for _, id := range c.ItemIDs {
			if !g.linkTo(src, EdgePossesses, domain.EntityItem, id, EdgeProperties{}, c.FirstChapter) {
				skipped++
			}
		}
		for _, id := range c.TechniqueIDs {
			if !g.linkTo(src, EdgeMasters, domain.EntityTechnique, id, EdgeProperties{}, c.FirstChapter) {
				skipped++
			}
		}
		if c.LocationID != "" && !g.linkTo(src, EdgeLocatedIn, domain.EntityLocation, c.LocationID, EdgeProperties{}, c.LastUpdatedChapter) {
			skipped++
		}
	}

	g.logger.Info("graph initialized",
		zap.String("novel", state.ID),
		zap.Int("nodes", len(g.nodes)),
		zap.Int("edges", len(g.edges)),
		zap.Int("timelines", len(g.timelines)),
		zap.Int("dangling_references", skipped),
	)
}

func (g *Graph) addNode(t domain.EntityType, entityID, label string, props NodeProperties, created, updated int) {
	props.EntityID = entityID
	id := NodeID(t, entityID)
	g.nodes[id] = &Node{
		ID:             id,
		Type:           t,
		Label:          label,
		Properties:     props,
		ChapterCreated: created,
		ChapterUpdated: updated,
	}
}

// linkTo adds an edge to an existing target node; it reports false when the
// target entity is not in the graph
func (g *Graph) linkTo(source string, et EdgeType, targetType domain.EntityType, targetID string, props EdgeProperties, chapter int) bool {
	target := NodeID(targetType, targetID)
	if _, ok := g.nodes[target]; !ok {
		g.logger.Debug("dangling reference",
			zap.String("source", source),
			zap.String("target", target),
		)
		return false
	}
	id := EdgeID(et, source, target)
	g.edges[id] = &Edge{
		ID:                 id,
		Source:             source,
		Target:             target,
		Type:               et,
		Properties:         props,
		ChapterEstablished: chapter,
		ChapterUpdated:     chapter,
	}
	return true
}

// UpdatePowerLevel appends a progression event to the character's timeline
// and refreshes the node's cached level. It is the only write path for
// power levels.
func (g *Graph) UpdatePowerLevel(characterID, newLevel, chapterID string, chapterNumber int, ptype ProgressionType, justification string) error {
	tl, ok := g.timelines[characterID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCharacter, characterID)
	}
	if last, ok := tl.LastEvent(); ok && chapterNumber < last.ChapterNumber {
		return fmt.Errorf("%w: %s at chapter %d, last event at %d", ErrChapterOutOfOrder, characterID, chapterNumber, last.ChapterNumber)
	}

	tl.Events = append(tl.Events, ProgressionEvent{
		ChapterNumber: chapterNumber,
		ChapterID:     chapterID,
		PowerLevel:    newLevel,
		PreviousLevel: tl.CurrentLevel,
		Type:          ptype,
		Justification: justification,
		Timestamp:     g.now().UTC(),
	})
	tl.CurrentLevel = newLevel
	tl.CurrentChapter = chapterNumber

	if n, ok := g.nodes[NodeID(domain.EntityCharacter, characterID)]; ok {
		n.Properties.PowerLevel = newLevel
		n.ChapterUpdated = chapterNumber
	}

	g.logger.Debug("power level updated",
		zap.String("character", characterID),
		zap.String("level", newLevel),
		zap.String("type", string(ptype)),
		zap.Int("chapter", chapterNumber),
	)
	return nil
}

// SetBaseline seeds the timeline of a character whose level is not known
// yet. It reports false once the character has a known level or any
// progression event, which leaves UpdatePowerLevel as the only way to move
// a known level.
func (g *Graph) SetBaseline(characterID, level string, chapterNumber int) bool {
	tl, ok := g.timelines[characterID]
	if !ok || len(tl.Events) > 0 || !domain.IsUnknownLevel(tl.CurrentLevel) {
		return false
	}
	tl.Baseline = level
	tl.BaselineChapter = chapterNumber
	tl.CurrentLevel = level
	tl.CurrentChapter = chapterNumber

	if n, ok := g.nodes[NodeID(domain.EntityCharacter, characterID)]; ok {
		n.Properties.PowerLevel = level
		if chapterNumber > n.ChapterUpdated {
			n.ChapterUpdated = chapterNumber
		}
	}
	g.logger.Debug("power baseline set",
		zap.String("character", characterID),
		zap.String("level", level),
		zap.Int("chapter", chapterNumber),
	)
	return true
}

// AddOrUpdateRelationship upserts the character relationship edge from
// source to target. An existing edge has its properties overwritten and its
// last-updated chapter bumped. created reports whether a new edge was added.
func (g *Graph) AddOrUpdateRelationship(sourceID, targetID, relType, history, impact string, chapterNumber int) (created bool, err error) {
	src := NodeID(domain.EntityCharacter, sourceID)
	tgt := NodeID(domain.EntityCharacter, targetID)
	if _, ok := g.nodes[src]; !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownCharacter, sourceID)
	}
	if _, ok := g.nodes[tgt]; !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownCharacter, targetID)
	}

	props := EdgeProperties{Label: relType, History: history, Impact: impact}
	id := EdgeID(EdgeRelationship, src, tgt)
	if e, ok := g.edges[id]; ok {
		e.Properties = props
		e.ChapterUpdated = chapterNumber
		return false, nil
	}

	g.edges[id] = &Edge{
		ID:                 id,
		Source:             src,
		Target:             tgt,
		Type:               EdgeRelationship,
		Properties:         props,
		ChapterEstablished: chapterNumber,
		ChapterUpdated:     chapterNumber,
	}
	return true, nil
}

// NodeUpdate carries node fields to overwrite; empty fields are left alone
type NodeUpdate struct {
	Label       string
	Status      string
	Description string
	Category    string
	Extra       map[string]string
}

// UpdateNode overwrites the non-empty fields of an existing node. It reports
// false when the node does not exist; nodes are only created by Initialize.
func (g *Graph) UpdateNode(t domain.EntityType, entityID string, u NodeUpdate, chapterNumber int) bool {
	n, ok := g.nodes[NodeID(t, entityID)]
	if !ok {
		return false
	}
	if u.Label != "" {
		n.Label = u.Label
	}
	if u.Status != "" {
		n.Properties.Status = u.Status
	}
	if u.Description != "" {
		n.Properties.Description = u.Description
	}
	if u.Category != "" {
		n.Properties.Category = u.Category
	}
	for k, v := range u.Extra {
		if n.Properties.Extra == nil {
			n.Properties.Extra = make(map[string]string)
		}
		n.Properties.Extra[k] = v
	}
	if chapterNumber > n.ChapterUpdated {
		n.ChapterUpdated = chapterNumber
	}
	return true
}

// NovelID returns the id of the novel the graph was built from
func (g *Graph) NovelID() string {
	return g.novelID
}

// Node returns a copy of a node by type and entity id
func (g *Graph) Node(t domain.EntityType, entityID string) (Node, bool) {
	n, ok := g.nodes[NodeID(t, entityID)]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// HasCharacter reports whether a character node exists
func (g *Graph) HasCharacter(characterID string) bool {
	_, ok := g.nodes[NodeID(domain.EntityCharacter, characterID)]
	return ok
}

// CharacterPowerLevel returns the cached level of a character
func (g *Graph) CharacterPowerLevel(characterID string) (string, bool) {
	tl, ok := g.timelines[characterID]
	if !ok {
		return "", false
	}
	return tl.CurrentLevel, true
}

// CharacterRelationships returns every edge touching the character, sorted
// by id
func (g *Graph) CharacterRelationships(characterID string) []Edge {
	id := NodeID(domain.EntityCharacter, characterID)
	var out []Edge
	for _, e := range g.edges {
		if e.Source == id || e.Target == id {
			out = append(out, e.clone())
		}
	}
	sortEdges(out)
	return out
}

// PowerProgression returns a copy of the character's timeline
func (g *Graph) PowerProgression(characterID string) (PowerTimeline, bool) {
	tl, ok := g.timelines[characterID]
	if !ok {
		return PowerTimeline{}, false
	}
	return tl.clone(), true
}

// EntitiesByType returns the nodes of one type, sorted by id
func (g *Graph) EntitiesByType(t domain.EntityType) []Node {
	var out []Node
	for _, n := range g.nodes {
		if n.Type == t {
			out = append(out, n.clone())
		}
	}
	sortNodes(out)
	return out
}

// FindEntityByName returns the first node (by id) whose label equals name,
// ignoring case. An empty type searches every type. No fuzzy fallback.
func (g *Graph) FindEntityByName(name string, t domain.EntityType) (Node, bool) {
	name = strings.TrimSpace(name)
	var best *Node
	for _, n := range g.nodes {
		if t != "" && n.Type != t {
			continue
		}
		if !domain.SameName(n.Label, name) {
			continue
		}
		if best == nil || n.ID < best.ID {
			best = n
		}
	}
	if best == nil {
		return Node{}, false
	}
	return best.clone(), true
}

// MissingReverseRelationships lists character relationship edges whose
// reverse edge does not exist
func (g *Graph) MissingReverseRelationships() []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Type != EdgeRelationship || e.Source == e.Target {
			continue
		}
		if _, ok := g.edges[EdgeID(EdgeRelationship, e.Target, e.Source)]; !ok {
			out = append(out, e.clone())
		}
	}
	sortEdges(out)
	return out
}

// Snapshot flattens the graph into sorted slices
func (g *Graph) Snapshot() Snapshot {
	s := Snapshot{
		NovelID:           g.novelID,
		Nodes:             make([]Node, 0, len(g.nodes)),
		Edges:             make([]Edge, 0, len(g.edges)),
		PowerProgressions: make([]PowerTimeline, 0, len(g.timelines)),
		GeneratedAt:       g.now().UTC(),
	}
	for _, n := range g.nodes {
		s.Nodes = append(s.Nodes, n.clone())
	}
	for _, e := range g.edges {
		s.Edges = append(s.Edges, e.clone())
	}
	for _, tl := range g.timelines {
		s.PowerProgressions = append(s.PowerProgressions, tl.clone())
	}
	sortNodes(s.Nodes)
	sortEdges(s.Edges)
	sort.Slice(s.PowerProgressions, func(i, j int) bool {
		return s.PowerProgressions[i].CharacterID < s.PowerProgressions[j].CharacterID
	})
	return s
}

// RestoreTimelines replays persisted progression events onto the freshly
// initialized timelines. Events for unknown characters or older than the
// timeline's latest event are skipped; the count applied is returned.
func (g *Graph) RestoreTimelines(timelines []PowerTimeline) int {
	applied := 0
	for _, saved := range timelines {
		for _, ev := range saved.Events {
			if err := g.UpdatePowerLevel(saved.CharacterID, ev.PowerLevel, ev.ChapterID, ev.ChapterNumber, ev.Type, ev.Justification); err != nil {
				g.logger.Debug("skipped persisted progression event",
					zap.String("character", saved.CharacterID),
					zap.Error(err),
				)
				continue
			}
			applied++
		}
	}
	return applied
}

// Stats counts nodes, edges and timeline events
func (g *Graph) Stats() Stats {
	s := Stats{
		Nodes:       len(g.nodes),
		Edges:       len(g.edges),
		NodesByType: make(map[domain.EntityType]int),
		EdgesByType: make(map[EdgeType]int),
		Timelines:   len(g.timelines),
	}
	for _, n := range g.nodes {
		s.NodesByType[n.Type]++
	}
	for _, e := range g.edges {
		s.EdgesByType[e.Type]++
	}
	for _, tl := range g.timelines {
		s.Events += len(tl.Events)
	}
	return s
}

func sortNodes(ns []Node) {
	sort.Slice(ns, func(i, j int) bool { return ns[i].ID < ns[j].ID })
}

func sortEdges(es []Edge) {
	sort.Slice(es, func(i, j int) bool { return es[i].ID < es[j].ID })
}

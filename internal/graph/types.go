package graph

import (
	"time"

	"continuity/internal/domain"
)

// EdgeType names the kind of relationship an edge represents
type EdgeType string

const (
	EdgeRelationship EdgeType = "relationship" // character -> character
	EdgePossesses    EdgeType = "possesses"    // character -> item
	EdgeMasters      EdgeType = "masters"      // character -> technique
	EdgeLocatedIn    EdgeType = "located_in"   // character -> location
)

// NodeProperties holds the well-known typed fields of a node; Extra carries
// the heterogeneous remainder
type NodeProperties struct {
	EntityID    string            `json:"entityId"`
	PowerLevel  string            `json:"powerLevel,omitempty"`
	Status      string            `json:"status,omitempty"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Node is one tracked entity
type Node struct {
	ID             string            `json:"id"`
	Type           domain.EntityType `json:"type"`
	Label          string            `json:"label"`
	Properties     NodeProperties    `json:"properties"`
	ChapterCreated int               `json:"chapterCreated"`
	ChapterUpdated int               `json:"chapterUpdated"`
}

// EdgeProperties holds relationship text
type EdgeProperties struct {
	Label   string            `json:"label,omitempty"`
	History string            `json:"history,omitempty"`
	Impact  string            `json:"impact,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// Edge is one directed relationship between two nodes
type Edge struct {
	ID                 string         `json:"id"`
	Source             string         `json:"source"`
	Target             string         `json:"target"`
	Type               EdgeType       `json:"type"`
	Properties         EdgeProperties `json:"properties"`
	ChapterEstablished int            `json:"chapterEstablished"`
	ChapterUpdated     int            `json:"chapterUpdated"`
}

// ProgressionType classifies a power level transition
type ProgressionType string

const (
	ProgressionBreakthrough ProgressionType = "breakthrough"
	ProgressionGradual      ProgressionType = "gradual"
	ProgressionRegression   ProgressionType = "regression"
	ProgressionStable       ProgressionType = "stable"
)

// ProgressionEvent is one entry of a power timeline
type ProgressionEvent struct {
	ChapterNumber int             `json:"chapterNumber"`
	ChapterID     string          `json:"chapterId"`
	PowerLevel    string          `json:"powerLevel"`
	PreviousLevel string          `json:"previousLevel,omitempty"`
	Type          ProgressionType `json:"progressionType"`
	Justification string          `json:"justification,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// PowerTimeline is the append-only power history of one character
type PowerTimeline struct {
	CharacterID     string             `json:"characterId"`
	Baseline        string             `json:"baseline"`
	BaselineChapter int                `json:"baselineChapter"`
	Events          []ProgressionEvent `json:"events"`
	CurrentLevel    string             `json:"currentLevel"`
	CurrentChapter  int                `json:"currentChapter"`
}

// LastEvent returns the latest event, if any
func (t *PowerTimeline) LastEvent() (ProgressionEvent, bool) {
	if len(t.Events) == 0 {
		return ProgressionEvent{}, false
	}
	return t.Events[len(t.Events)-1], true
}

// LevelBefore returns the level the character held before chapterNumber and
// the chapter that level was reached in
func (t *PowerTimeline) LevelBefore(chapterNumber int) (level string, since int) {
	level, since = t.Baseline, t.BaselineChapter
	for _, ev := range t.Events {
		if ev.ChapterNumber >= chapterNumber {
			break
		}
		level, since = ev.PowerLevel, ev.ChapterNumber
	}
	return level, since
}

func (t *PowerTimeline) clone() PowerTimeline {
	c := *t
	c.Events = append([]ProgressionEvent(nil), t.Events...)
	return c
}

// Snapshot is the flattened graph used for persistence
type Snapshot struct {
	NovelID           string          `json:"novelId,omitempty"`
	Nodes             []Node          `json:"nodes"`
	Edges             []Edge          `json:"edges"`
	PowerProgressions []PowerTimeline `json:"powerProgressions"`
	GeneratedAt       time.Time       `json:"generatedAt"`
}

// Stats summarizes graph size
type Stats struct {
	Nodes       int                       `json:"nodes"`
	Edges       int                       `json:"edges"`
	NodesByType map[domain.EntityType]int `json:"nodesByType"`
	EdgesByType map[EdgeType]int          `json:"edgesByType"`
	Timelines   int                       `json:"timelines"`
	Events      int                       `json:"events"`
}

// NodeID derives the node identifier from entity type and source id
func NodeID(t domain.EntityType, entityID string) string {
	return string(t) + "_" + entityID
}

// EdgeID derives the edge identifier from type, source and target node ids
func EdgeID(t EdgeType, source, target string) string {
	return string(t) + ":" + source + "->" + target
}

func cloneExtra(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (n *Node) clone() Node {
	c := *n
	c.Properties.Extra = cloneExtra(n.Properties.Extra)
	return c
}

func (e *Edge) clone() Edge {
	c := *e
	c.Properties.Extra = cloneExtra(e.Properties.Extra)
	return c
}

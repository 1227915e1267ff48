package domain

import (
	"slices"
	"strings"
)

// EntityType identifies the kind of tracked story object
type EntityType string

const (
	EntityCharacter  EntityType = "character"
	EntityItem       EntityType = "item"
	EntityTechnique  EntityType = "technique"
	EntityLocation   EntityType = "location"
	EntityAntagonist EntityType = "antagonist"
	EntityWorldRule  EntityType = "world_rule"
)

// EntityTypes lists every tracked entity type in graph build order
var EntityTypes = []EntityType{
	EntityCharacter,
	EntityItem,
	EntityTechnique,
	EntityLocation,
	EntityAntagonist,
	EntityWorldRule,
}

func (t EntityType) String() string {
	return string(t)
}

// ParseEntityType converts user input (e.g. "Character", "world-rule") to an EntityType
func ParseEntityType(s string) (EntityType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	for _, t := range EntityTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Well-known character statuses
const (
	StatusAlive    = "Alive"
	StatusDeceased = "Deceased"
	StatusUnknown  = "Unknown"
)

// IsDeceased reports whether a free-text status means the character is dead
func IsDeceased(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "deceased", "dead", "killed":
		return true
	}
	return false
}

// IsUnknownLevel reports whether a power level string carries no information
func IsUnknownLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "unknown", "none", "n/a":
		return true
	}
	return false
}

// Relationship is a declared character-to-character relationship
type Relationship struct {
	CharacterID string `json:"characterId" yaml:"characterId" validate:"required"`
	Type        string `json:"type" yaml:"type" validate:"required"`
	History     string `json:"history,omitempty" yaml:"history,omitempty"`
	Impact      string `json:"impact,omitempty" yaml:"impact,omitempty"`
}

// Character is a tracked character with its current cultivation/power level
type Character struct {
	ID                 string         `json:"id" yaml:"id" validate:"required"`
	Name               string         `json:"name" yaml:"name" validate:"required"`
	IsProtagonist      bool           `json:"isProtagonist,omitempty" yaml:"isProtagonist,omitempty"`
	CurrentCultivation string         `json:"currentCultivation,omitempty" yaml:"currentCultivation,omitempty"`
	Status             string         `json:"status,omitempty" yaml:"status,omitempty"`
	Personality        string         `json:"personality,omitempty" yaml:"personality,omitempty"`
	Notes              string         `json:"notes,omitempty" yaml:"notes,omitempty"`
	Skills             []string       `json:"skills,omitempty" yaml:"skills,omitempty"`
	Items              []string       `json:"items,omitempty" yaml:"items,omitempty"`
	ItemIDs            []string       `json:"itemIds,omitempty" yaml:"itemIds,omitempty"`
	TechniqueIDs       []string       `json:"techniqueIds,omitempty" yaml:"techniqueIds,omitempty"`
	LocationID         string         `json:"locationId,omitempty" yaml:"locationId,omitempty"`
	Relationships      []Relationship `json:"relationships,omitempty" yaml:"relationships,omitempty" validate:"dive"`
	FirstChapter       int            `json:"firstChapter,omitempty" yaml:"firstChapter,omitempty" validate:"gte=0"`
	LastUpdatedChapter int            `json:"lastUpdatedChapter,omitempty" yaml:"lastUpdatedChapter,omitempty" validate:"gte=0"`
}

// Clone returns a copy of c that shares no slices with it
func (c Character) Clone() Character {
	c.Skills = slices.Clone(c.Skills)
	c.Items = slices.Clone(c.Items)
	c.ItemIDs = slices.Clone(c.ItemIDs)
	c.TechniqueIDs = slices.Clone(c.TechniqueIDs)
	c.Relationships = slices.Clone(c.Relationships)
	return c
}

// RelationshipTo returns the declared relationship towards targetID, if any
func (c *Character) RelationshipTo(targetID string) (Relationship, bool) {
	for _, r := range c.Relationships {
		if r.CharacterID == targetID {
			return r, true
		}
	}
	return Relationship{}, false
}

// Item is an artifact, weapon or treasure
type Item struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	Name        string `json:"name" yaml:"name" validate:"required"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Powers      string `json:"powers,omitempty" yaml:"powers,omitempty"`
}

// Technique is a learnable skill, art or spell
type Technique struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	Name        string `json:"name" yaml:"name" validate:"required"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Location is a place or territory in the story world
type Location struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	Name        string `json:"name" yaml:"name" validate:"required"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Antagonist is an opposing force, individual or faction
type Antagonist struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	Name        string `json:"name" yaml:"name" validate:"required"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	PowerLevel  string `json:"powerLevel,omitempty" yaml:"powerLevel,omitempty"`
	Status      string `json:"status,omitempty" yaml:"status,omitempty"`
}

// WorldRule is a world-bible entry (magic system rule, law of the setting, ...)
type WorldRule struct {
	ID       string `json:"id" yaml:"id" validate:"required"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	Title    string `json:"title" yaml:"title" validate:"required"`
	Content  string `json:"content,omitempty" yaml:"content,omitempty"`
}

// Realm is a world/plane the story can take place in
type Realm struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	Name        string `json:"name" yaml:"name" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Status      string `json:"status,omitempty" yaml:"status,omitempty"`
}

// Chapter is a chapter record: provenance for snapshots and the text corpus
// scanned for justification cues
type Chapter struct {
	ID      string `json:"id" yaml:"id" validate:"required"`
	Number  int    `json:"number" yaml:"number" validate:"gte=1"`
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// NovelState is the full externally-owned novel state
type NovelState struct {
	ID             string       `json:"id" yaml:"id" validate:"required"`
	Title          string       `json:"title,omitempty" yaml:"title,omitempty"`
	PowerCategory  string       `json:"powerCategory,omitempty" yaml:"powerCategory,omitempty"`
	CurrentRealmID string       `json:"currentRealmId,omitempty" yaml:"currentRealmId,omitempty"`
	Characters     []Character  `json:"characters,omitempty" yaml:"characters,omitempty" validate:"dive"`
	Items          []Item       `json:"items,omitempty" yaml:"items,omitempty" validate:"dive"`
	Techniques     []Technique  `json:"techniques,omitempty" yaml:"techniques,omitempty" validate:"dive"`
	Locations      []Location   `json:"locations,omitempty" yaml:"locations,omitempty" validate:"dive"`
	Antagonists    []Antagonist `json:"antagonists,omitempty" yaml:"antagonists,omitempty" validate:"dive"`
	WorldRules     []WorldRule  `json:"worldRules,omitempty" yaml:"worldRules,omitempty" validate:"dive"`
	Realms         []Realm      `json:"realms,omitempty" yaml:"realms,omitempty" validate:"dive"`
	Chapters       []Chapter    `json:"chapters,omitempty" yaml:"chapters,omitempty" validate:"dive"`
}

// Clone returns a deep copy of the state. Updates applied to the copy never
// reach n.
func (n *NovelState) Clone() *NovelState {
	out := *n
	out.Characters = make([]Character, len(n.Characters))
	for i := range n.Characters {
		out.Characters[i] = n.Characters[i].Clone()
	}
	out.Items = slices.Clone(n.Items)
	out.Techniques = slices.Clone(n.Techniques)
	out.Locations = slices.Clone(n.Locations)
	out.Antagonists = slices.Clone(n.Antagonists)
	out.WorldRules = slices.Clone(n.WorldRules)
	out.Realms = slices.Clone(n.Realms)
	out.Chapters = slices.Clone(n.Chapters)
	return &out
}

// PutChapter adds chapter, replacing any chapter with the same number
func (n *NovelState) PutChapter(chapter Chapter) {
	for i := range n.Chapters {
		if n.Chapters[i].Number == chapter.Number {
			n.Chapters[i] = chapter
			return
		}
	}
	n.Chapters = append(n.Chapters, chapter)
}

// Character returns the character with the given id
func (n *NovelState) Character(id string) *Character {
	for i := range n.Characters {
		if n.Characters[i].ID == id {
			return &n.Characters[i]
		}
	}
	return nil
}

// Chapter returns the chapter with the given number
func (n *NovelState) Chapter(number int) *Chapter {
	for i := range n.Chapters {
		if n.Chapters[i].Number == number {
			return &n.Chapters[i]
		}
	}
	return nil
}

// LatestChapter returns the highest-numbered chapter, or nil for an empty novel
func (n *NovelState) LatestChapter() *Chapter {
	var latest *Chapter
	for i := range n.Chapters {
		if latest == nil || n.Chapters[i].Number > latest.Number {
			latest = &n.Chapters[i]
		}
	}
	return latest
}

// CurrentRealm returns the realm referenced by CurrentRealmID
func (n *NovelState) CurrentRealm() *Realm {
	if n.CurrentRealmID == "" {
		return nil
	}
	for i := range n.Realms {
		if n.Realms[i].ID == n.CurrentRealmID {
			return &n.Realms[i]
		}
	}
	return nil
}

// Protagonists returns all characters flagged as protagonists
func (n *NovelState) Protagonists() []Character {
	var out []Character
	for _, c := range n.Characters {
		if c.IsProtagonist {
			out = append(out, c)
		}
	}
	return out
}

package domain

// ExtractionPayload is the structured record extracted from one generated chapter
type ExtractionPayload struct {
	ChapterID        string            `json:"chapterId,omitempty" yaml:"chapterId,omitempty"`
	ChapterNumber    int               `json:"chapterNumber,omitempty" yaml:"chapterNumber,omitempty" validate:"gte=0"`
	CharacterUpserts []CharacterUpsert `json:"characterUpserts,omitempty" yaml:"characterUpserts,omitempty" validate:"dive"`
	ItemUpdates      []EntityUpdate    `json:"itemUpdates,omitempty" yaml:"itemUpdates,omitempty" validate:"dive"`
	TechniqueUpdates []EntityUpdate    `json:"techniqueUpdates,omitempty" yaml:"techniqueUpdates,omitempty" validate:"dive"`
	WorldRuleUpserts []WorldRuleUpsert `json:"worldRuleUpserts,omitempty" yaml:"worldRuleUpserts,omitempty" validate:"dive"`
}

// CharacterFields is the optional field set of a character upsert.
// Empty strings mean "not reported".
type CharacterFields struct {
	Cultivation string `json:"cultivation,omitempty" yaml:"cultivation,omitempty"`
	Status      string `json:"status,omitempty" yaml:"status,omitempty"`
	Personality string `json:"personality,omitempty" yaml:"personality,omitempty"`
	Notes       string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// RelationshipUpsert is a relationship reported by extraction, keyed by target name
type RelationshipUpsert struct {
	TargetName string `json:"targetName" yaml:"targetName" validate:"required"`
	Type       string `json:"type" yaml:"type" validate:"required"`
	History    string `json:"history,omitempty" yaml:"history,omitempty"`
	Impact     string `json:"impact,omitempty" yaml:"impact,omitempty"`
}

// CharacterUpsert creates or updates one character by name
type CharacterUpsert struct {
	Name             string               `json:"name" yaml:"name" validate:"required"`
	Set              CharacterFields      `json:"set,omitempty" yaml:"set,omitempty"`
	AddRelationships []RelationshipUpsert `json:"addRelationships,omitempty" yaml:"addRelationships,omitempty" validate:"dive"`
	AddSkills        []string             `json:"addSkills,omitempty" yaml:"addSkills,omitempty"`
	AddItems         []string             `json:"addItems,omitempty" yaml:"addItems,omitempty"`
}

// EntityUpdate updates an item or technique by name
type EntityUpdate struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// WorldRuleUpsert creates or updates a world-bible entry by title
type WorldRuleUpsert struct {
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	Title    string `json:"title" yaml:"title" validate:"required"`
	Content  string `json:"content" yaml:"content"`
}

// GeneratedChapter bundles a freshly generated chapter with its extraction
type GeneratedChapter struct {
	Chapter Chapter           `json:"chapter" yaml:"chapter" validate:"required"`
	Payload ExtractionPayload `json:"payload" yaml:"payload"`
}

package application

import (
	"continuity/internal/domain"
	"continuity/internal/graph"
	"continuity/internal/statetracker"
	"continuity/internal/validation"
)

// Re-export engine types for use by adapters
type (
	NovelState       = domain.NovelState
	Chapter          = domain.Chapter
	GeneratedChapter = domain.GeneratedChapter
	ValidationIssue  = domain.ValidationIssue
	Severity         = domain.Severity
	EntityType       = domain.EntityType
	Report           = validation.Report
	Completeness     = validation.Completeness
	UpdateResult     = graph.UpdateResult
	GraphSnapshot    = graph.Snapshot
	PowerTimeline    = graph.PowerTimeline
	EntitySnapshot   = statetracker.Snapshot
	EntityState      = statetracker.State
)

const (
	SeverityCritical = domain.SeverityCritical
	SeverityWarning  = domain.SeverityWarning
	SeverityInfo     = domain.SeverityInfo
)

// ParseEntityType converts user input (e.g. "Character", "world-rule") to an EntityType
func ParseEntityType(s string) (EntityType, bool) {
	return domain.ParseEntityType(s)
}

package commands

import (
	"context"
	"fmt"
	"strings"

	"continuity/internal/application"
	"continuity/internal/powerlevel"
)

// ParseLevelResult is a parsed power level with its place in the ladder
type ParseLevelResult struct {
	Input      string
	Category   string
	Known      bool
	Normalized string
	Stage      string
	Order      int
	SubStage   string
	NextStage  string
}

// ParseLevelCommand parses free-text power level descriptions
type ParseLevelCommand struct {
	levels   *powerlevel.System
	Level    string
	Category string
}

// NewParseLevelCommand creates a new ParseLevelCommand
func NewParseLevelCommand(levels *powerlevel.System, level, category string) *ParseLevelCommand {
	return &ParseLevelCommand{levels: levels, Level: level, Category: category}
}

// Validate checks if the parse operation is valid
func (c *ParseLevelCommand) Validate() error {
	if err := application.ValidateRequired("level", c.Level); err != nil {
		return err
	}
	return validateCategory(c.levels, c.Category)
}

// Execute runs the parse command. Unknown levels are not an error.
func (c *ParseLevelCommand) Execute(ctx context.Context) (*ParseLevelResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	l := c.levels.Parse(c.Level, c.Category)
	result := &ParseLevelResult{
		Input:      c.Level,
		Category:   l.Category,
		Known:      l.Known(),
		Normalized: l.String(),
		Stage:      l.Stage,
		Order:      l.Order,
		SubStage:   string(l.SubStage),
	}
	if next, ok := c.levels.NextStage(c.Level, c.Category); ok {
		result.NextStage = next.Name
	}
	return result, nil
}

// CompareLevelsResult is the ordering of two levels
type CompareLevelsResult struct {
	A, B       string
	Comparison int // -1, 0 or 1; 0 also when either side is unknown
	Comparable bool
	StageDelta int
	Message    string
}

// CompareLevelsCommand orders two power levels
type CompareLevelsCommand struct {
	levels   *powerlevel.System
	A, B     string
	Category string
}

// NewCompareLevelsCommand creates a new CompareLevelsCommand
func NewCompareLevelsCommand(levels *powerlevel.System, a, b, category string) *CompareLevelsCommand {
	return &CompareLevelsCommand{levels: levels, A: a, B: b, Category: category}
}

// Validate checks if the compare operation is valid
func (c *CompareLevelsCommand) Validate() error {
	if err := application.ValidateRequired("a", c.A); err != nil {
		return err
	}
	if err := application.ValidateRequired("b", c.B); err != nil {
		return err
	}
	return validateCategory(c.levels, c.Category)
}

// Execute runs the compare command
func (c *CompareLevelsCommand) Execute(ctx context.Context) (*CompareLevelsResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	result := &CompareLevelsResult{
		A:          c.A,
		B:          c.B,
		Comparison: c.levels.Compare(c.A, c.B, c.Category),
	}
	result.StageDelta, result.Comparable = c.levels.StageDelta(c.A, c.B, c.Category)

	switch {
	case !result.Comparable:
		result.Message = fmt.Sprintf("cannot compare %q and %q", c.A, c.B)
	case result.Comparison < 0:
		result.Message = fmt.Sprintf("%s is below %s", c.A, c.B)
	case result.Comparison > 0:
		result.Message = fmt.Sprintf("%s is above %s", c.A, c.B)
	default:
		result.Message = fmt.Sprintf("%s and %s are the same level", c.A, c.B)
	}
	return result, nil
}

// CheckProgressionCommand validates a transition between two levels
type CheckProgressionCommand struct {
	levels          *powerlevel.System
	Previous        string
	Current         string
	ChaptersElapsed int
	HasEvent        bool
	Category        string
}

// NewCheckProgressionCommand creates a new CheckProgressionCommand
func NewCheckProgressionCommand(levels *powerlevel.System, previous, current string, elapsed int, hasEvent bool, category string) *CheckProgressionCommand {
	return &CheckProgressionCommand{
		levels:          levels,
		Previous:        previous,
		Current:         current,
		ChaptersElapsed: elapsed,
		HasEvent:        hasEvent,
		Category:        category,
	}
}

// Validate checks if the progression check is valid
func (c *CheckProgressionCommand) Validate() error {
	if err := application.ValidateRequired("previous", c.Previous); err != nil {
		return err
	}
	if err := application.ValidateRequired("current", c.Current); err != nil {
		return err
	}
	if c.ChaptersElapsed < 0 {
		return &application.ValidationError{
			Field:   "chaptersElapsed",
			Message: "chapters elapsed cannot be negative",
		}
	}
	return validateCategory(c.levels, c.Category)
}

// Execute runs the progression check
func (c *CheckProgressionCommand) Execute(ctx context.Context) (*powerlevel.ProgressionResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	res := c.levels.ValidateProgressionIn(c.Category, c.Previous, c.Current, c.ChaptersElapsed, c.HasEvent)
	return &res, nil
}

func validateCategory(levels *powerlevel.System, category string) error {
	if strings.TrimSpace(category) == "" {
		return nil
	}
	if _, ok := levels.Hierarchy(category); !ok {
		return &application.ValidationError{
			Field:   "category",
			Message: fmt.Sprintf("unknown power category %q (known: %s)", category, strings.Join(levels.Categories(), ", ")),
		}
	}
	return nil
}

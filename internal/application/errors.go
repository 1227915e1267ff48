package application

import (
	"errors"
	"fmt"

	"continuity/internal/statetracker"
)

// Sentinel errors for common conditions
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrRollbackUnreachable = errors.New("rollback target unreachable")
	ErrNotLoaded           = errors.New("no novel loaded")
	ErrChapterOutOfOrder   = statetracker.ErrChapterOutOfOrder
)

// ValidationError represents a validation failure with details
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// RollbackError reports a rollback to a chapter no snapshot covers
type RollbackError struct {
	EntityType string
	EntityID   string
	Chapter    int
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("cannot roll back %s %s to chapter %d: no snapshot at or before it", e.EntityType, e.EntityID, e.Chapter)
}

func (e *RollbackError) Is(target error) bool {
	return target == ErrRollbackUnreachable
}

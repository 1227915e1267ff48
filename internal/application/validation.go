package application

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"continuity/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// report json names so errors point at the input file's keys
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidateRequired checks if a string field is non-empty (after trimming whitespace).
// Returns a ValidationError if the field is empty.
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s is required", formatFieldName(fieldName)),
		}
	}
	return nil
}

// ValidateChapterNumber checks that n is a valid chapter number
func ValidateChapterNumber(fieldName string, n int) error {
	if n < 1 {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s must be at least 1, got %d", formatFieldName(fieldName), n),
		}
	}
	return nil
}

// ValidateEntityType parses an entity type given by the user
func ValidateEntityType(fieldName, value string) (domain.EntityType, error) {
	t, ok := domain.ParseEntityType(value)
	if !ok {
		return "", &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("unknown entity type: %s", value),
		}
	}
	return t, nil
}

// ValidateNovelState checks struct constraints on a loaded novel state
func ValidateNovelState(state *domain.NovelState) error {
	if state == nil {
		return &ValidationError{Field: "state", Message: "novel state is required"}
	}
	return structError(validate.Struct(state))
}

// ValidatePayload checks struct constraints on an extraction payload
func ValidatePayload(payload *domain.ExtractionPayload) error {
	if payload == nil {
		return &ValidationError{Field: "payload", Message: "extraction payload is required"}
	}
	return structError(validate.Struct(payload))
}

// ValidateChapter checks struct constraints on a chapter record
func ValidateChapter(chapter *domain.Chapter) error {
	if chapter == nil {
		return &ValidationError{Field: "chapter", Message: "chapter is required"}
	}
	return structError(validate.Struct(chapter))
}

// structError converts the first validator failure to a ValidationError
func structError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	fe := fieldErrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("%s failed %q check", formatFieldName(fe.Field()), fe.Tag()),
	}
}

// formatFieldName converts Go field names to readable words
// (e.g., "ChapterNumber" -> "chapter number")
func formatFieldName(fieldName string) string {
	var b strings.Builder
	for i, r := range fieldName {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := fieldName[i-1]
			if prev >= 'a' && prev <= 'z' {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrNoEvents      = errors.New("no events found")
	ErrPageNotFound  = errors.New("no events found for the requested page")
	ErrEmptyPayload  = errors.New("no payload data provided")
	ErrEventOverlap  = errors.New("event overlaps with another event")
	ErrUpstream      = errors.New("upstream service unavailable")
	ErrInvalidQuery  = errors.New("invalid query")
)

// ValidationError carries a message per invalid field.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// MissingFieldError lists required fields absent from a create payload.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// OverlapError reports the stored event that conflicts with a write.
type OverlapError struct {
	ConflictID int64
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s (event %d)", ErrEventOverlap.Error(), e.ConflictID)
}

func (e *OverlapError) Is(target error) bool {
	return target == ErrEventOverlap
}

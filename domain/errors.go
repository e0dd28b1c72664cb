package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a record does not exist inside the caller's account.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates that storage rejected a write because a newer
	// version of the entity is already persisted.
	ErrConflict = errors.New("concurrency conflict")
	// ErrForbidden is returned by the authorization policy on deny.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated is returned when no actor could be established.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError carries field level messages, keyed by attribute name.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty error ready for Add calls.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// Add appends a message for field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Empty reports whether no message was recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// OrNil returns e as an error, or nil when it holds no messages.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+" "+strings.Join(e.Fields[field], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

package model

import (
	"sort"
	"strings"
)

// ValidationError carries field-scoped messages for malformed, missing or
// out-of-range input.  Keys are the JSON field names seen by clients.
// Domain invariants (for example an end date before a start date) are
// reported with the same type so callers only deal with one shape.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an error with a single field message.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Add records a message for field, keeping the first one reported.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Merge copies all messages of other under prefix (e.g. "dates[0].").
func (e *ValidationError) Merge(prefix string, other *ValidationError) {
	if other == nil {
		return
	}
	for f, m := range other.Fields {
		e.Add(prefix+f, m)
	}
}

// Empty reports whether no field has been recorded.
func (e *ValidationError) Empty() bool { return e == nil || len(e.Fields) == 0 }

// OrNil returns e as an error only when it carries messages.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

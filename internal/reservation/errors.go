package reservation

import (
	"errors"
	"sort"
	"strings"
)

// Conflict reasons returned to callers verbatim.
const (
	ReasonAlreadyBooked = "Seat already booked."
	ReasonHeldByOther   = "Seat currently held by another user."
	ReasonUnavailable   = "Seat currently unavailable."
)

var (
	// ErrConflict matches every ConflictError via errors.Is.
	ErrConflict = errors.New("conflict")
	// ErrNotFound is returned by Layout for an unknown showtime.
	ErrNotFound = errors.New("not found")
)

// ConflictError reports that the requested transition is not allowed in
// the seat's current state.  Nothing was written.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Reason }

// Is makes errors.Is(err, ErrConflict) true for every ConflictError.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func conflict(reason string) error { return &ConflictError{Reason: reason} }

// ValidationError reports caller-supplied identifiers that do not resolve.
// Fields maps the request field name to a human readable message.
type ValidationError struct {
	Fields map[string]string
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

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

package docdb

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptRecord is returned when a stored token cannot be decoded.
	ErrCorruptRecord = errors.New("corrupt record")
	// ErrNotAttached is returned when an entity is not tracked by the store.
	ErrNotAttached = errors.New("entity is not attached to a store")
	// ErrAlreadyAttached is returned when adding an entity that is already tracked.
	ErrAlreadyAttached = errors.New("entity is already attached to a store")
	// ErrDuplicateID is returned when adding an entity whose explicit id is taken.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrUnknownKind is returned for entity types or names that were never registered.
	ErrUnknownKind = errors.New("unknown kind")
	// ErrUnknownField is returned when a filter names a field the kind does not have.
	ErrUnknownField = errors.New("unknown field")
	// ErrKindExists is returned when registering a kind name or type twice.
	ErrKindExists = errors.New("kind already registered")
	// ErrInvalidKindName is returned for names that are not plain file names.
	ErrInvalidKindName = errors.New("invalid kind name")
)

// LoadError reports why a kind's file could not be loaded.
type LoadError struct {
	Kind string
	Path string
	// Line is the 1-based line of the offending token, 0 when the whole file failed.
	Line int
	Err  error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("failed to load %s from %s line %d: %v", e.Kind, e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("failed to load %s from %s: %v", e.Kind, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

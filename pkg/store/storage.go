package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrUnknownNodeID = errors.New("unknown node id")

	// ErrConfigInconsistent reports persisted metadata that conflicts with
	// the layout the code requires. It is always fatal at open time.
	ErrConfigInconsistent = errors.New("configuration inconsistency")

	// ErrAbsentValue is returned when the reserved absent value (nil) is
	// offered to a cache.
	ErrAbsentValue = errors.New("absent value cannot be cached")

	ErrCorrupt                = errors.New("structural corruption")
	ErrInconsistentIndexes    = errors.New("tuple indexes disagree")
	ErrConcurrentModification = errors.New("dataset modified during scan")
	ErrClosed                 = errors.New("dataset is closed")
)

// CorruptionError describes a malformed on-disk structure: a record of the
// wrong length, a truncated or missing block, an undecodable node.
type CorruptionError struct {
	Component string
	Detail    string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrCorrupt, e.Component, e.Detail)
}

func (e *CorruptionError) Unwrap() error {
	return ErrCorrupt
}

// Corruptf builds a CorruptionError for the named component.
func Corruptf(component, format string, args ...any) error {
	return &CorruptionError{Component: component, Detail: fmt.Sprintf(format, args...)}
}

// ConfigErrorf wraps ErrConfigInconsistent with a description.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfigInconsistent, fmt.Sprintf(format, args...))
}

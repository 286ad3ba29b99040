package domain

import (
	"errors"
	"fmt"
)

// Base error types (sentinel errors).
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrMalformedGrid    = errors.New("malformed grid")
	ErrPointOutOfBounds = errors.New("point out of bounds")
	ErrInternal         = errors.New("internal error")
)

// Specific errors.
var (
	ErrObjectNotFound    = fmt.Errorf("object: %w", ErrNotFound)
	ErrFileNotFound      = fmt.Errorf("file: %w", ErrNotFound)
	ErrInvalidCoordinate = fmt.Errorf("coordinate: %w", ErrInvalidInput)
	ErrInvalidTileSize   = fmt.Errorf("tile size: %w", ErrInvalidInput)
	ErrInvalidDataset    = fmt.Errorf("dataset: %w", ErrInvalidInput)
	ErrChecksumMismatch  = errors.New("checksum mismatch")
)

// MalformedGridError reports a file whose size or header cannot describe
// a square sample grid.
type MalformedGridError struct {
	Path       string // Source file path
	ByteLength int64  // Observed file length
	Reason     string // Human-readable message
}

// Error implements the error interface.
func (e *MalformedGridError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("malformed grid %s: %s (%d bytes)",
			e.Path, e.Reason, e.ByteLength)
	}
	return fmt.Sprintf("malformed grid: %s (%d bytes)", e.Reason, e.ByteLength)
}

// Unwrap returns the underlying error type.
func (e *MalformedGridError) Unwrap() error {
	return ErrMalformedGrid
}

// PointOutOfBoundsError reports a coordinate that falls outside the area
// covered by a grid.
type PointOutOfBoundsError struct {
	Point  Coordinate // The queried coordinate
	Extent Extent     // The area the grid covers
}

// Error implements the error interface.
func (e *PointOutOfBoundsError) Error() string {
	return fmt.Sprintf("point %s outside grid area %s", e.Point, e.Extent)
}

// Unwrap returns the underlying error type.
func (e *PointOutOfBoundsError) Unwrap() error {
	return ErrPointOutOfBounds
}

// ValidationError represents a detailed validation error.
type ValidationError struct {
	Field      string      // Field that failed validation
	Value      interface{} // The invalid value
	Constraint string      // The constraint that was violated
	Message    string      // Human-readable message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v, constraint: %s)",
		e.Field, e.Message, e.Value, e.Constraint)
}

// Unwrap returns the underlying error type.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// PersistenceError represents an error while writing to or preparing the
// database.
type PersistenceError struct {
	Operation string // Operation that failed (bootstrap, insert, etc.)
	Table     string // Target table
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("persistence error during %s on table %s: %v",
			e.Operation, e.Table, e.Err)
	}
	return fmt.Sprintf("persistence error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// StorageError represents an error during storage operations.
type StorageError struct {
	Operation string // Operation that failed (download, exists, etc.)
	Key       string // Object key
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage error during %s for %s: %v",
			e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("storage error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string // Configuration field
	Message string // Error message
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidInput
}

package vdm

import (
	"errors"
	"fmt"
)

// Error represents a structural failure of the versioning machinery.
//
// The taxonomy is small and deliberate:
//   - CONFIGURATION: a unit of work was misused (flush without a bound
//     revision, second revision bound to an already-bound unit of work).
//     Fatal to the unit of work; the caller must roll back.
//   - CONSISTENCY: validation found more or fewer than exactly one current
//     row for some continuity id. Never repaired silently; surfaced hard.
//   - CONFLICT: concurrent units of work raced to supersede the same
//     current row. The caller may retry; this layer never retries.
//
// "Entity not yet existing at a point in time" is normal control flow
// (a nil return), not an error in this taxonomy.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Entity names the affected entity type, if known.
	Entity string

	// ContinuityID identifies the affected continuity row, if known.
	ContinuityID string
}

// ErrorCode categorizes versioning errors.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates a misused unit of work.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeConsistency indicates a violated single-current invariant.
	ErrCodeConsistency ErrorCode = "CONSISTENCY"

	// ErrCodeConflict indicates a write-write race on a current row.
	ErrCodeConflict ErrorCode = "CONFLICT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Entity != "" && e.ContinuityID != "" {
		return fmt.Sprintf("%s: %s (entity=%s, id=%s)", e.Code, e.Message, e.Entity, e.ContinuityID)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s (entity=%s)", e.Code, e.Message, e.Entity)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigurationError reports whether err is a CONFIGURATION error.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code == ErrCodeConfiguration
	}
	return false
}

// IsConsistencyError reports whether err is a CONSISTENCY error.
// Uses errors.As to handle wrapped errors.
func IsConsistencyError(err error) bool {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code == ErrCodeConsistency
	}
	return false
}

// IsConflictError reports whether err is a CONFLICT error.
// Uses errors.As to handle wrapped errors.
func IsConflictError(err error) bool {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code == ErrCodeConflict
	}
	return false
}

// NewConfigurationError creates a CONFIGURATION error.
func NewConfigurationError(message string) *Error {
	return &Error{Code: ErrCodeConfiguration, Message: message}
}

// NewConsistencyError creates a CONSISTENCY error for a continuity row.
func NewConsistencyError(entity, continuityID, message string) *Error {
	return &Error{
		Code:         ErrCodeConsistency,
		Message:      message,
		Entity:       entity,
		ContinuityID: continuityID,
	}
}

// NewConflictError creates a CONFLICT error for a continuity row.
func NewConflictError(entity, continuityID, message string) *Error {
	return &Error{
		Code:         ErrCodeConflict,
		Message:      message,
		Entity:       entity,
		ContinuityID: continuityID,
	}
}

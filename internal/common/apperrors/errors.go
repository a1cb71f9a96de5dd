// Package apperrors defines the error taxonomy shared by the workflow services.
// Controllers map these onto HTTP statuses; anything that is none of them is an
// internal error and is surfaced generically.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound marks a missing process, task, template or property.
var ErrNotFound = errors.New("not found")

// ValidationError rejects malformed input before any mutation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validation builds a ValidationError with a formatted message.
func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// UnauthorizedError rejects a caller without the required capability.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string {
	if e.Msg == "" {
		return "unauthorized"
	}
	return e.Msg
}

// StateConflictError rejects a transition that is not legal from the entity's
// current status. The current status is echoed back to the caller.
type StateConflictError struct {
	Entity  string
	Current string
	Msg     string
}

func (e *StateConflictError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s (current status: %s)", e.Msg, e.Current)
	}
	return fmt.Sprintf("%s transition not allowed from status %q", e.Entity, e.Current)
}

// StateConflict builds a StateConflictError.
func StateConflict(entity, current, format string, args ...any) error {
	return &StateConflictError{Entity: entity, Current: current, Msg: fmt.Sprintf(format, args...)}
}

// GoneError is the distinct read result for a soft-deleted process instance.
// It carries deletion provenance only, never the full record.
type GoneError struct {
	DeletedAt   time.Time `json:"deleted_at"`
	DeletedBy   string    `json:"deleted_by"`
	ExternalRef string    `json:"external_ref,omitempty"`
}

func (e *GoneError) Error() string {
	return fmt.Sprintf("process instance deleted at %s", e.DeletedAt.Format(time.RFC3339))
}

// IsGone reports whether err is (or wraps) a GoneError.
func IsGone(err error) bool {
	var gone *GoneError
	return errors.As(err, &gone)
}

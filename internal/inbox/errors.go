package inbox

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a notification does not exist for the calling tenant.
var ErrNotFound = errors.New("not found")

// ErrLocked is returned when a reconciliation for the same tenant and topic is already running.
var ErrLocked = errors.New("reconciliation already in progress")

// ValidationError reports invalid caller input. No state is mutated when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// SignalSourceError reports a signal adapter failure for one tenant and topic.
type SignalSourceError struct {
	TenantID string
	Topic    Topic
	Err      error
}

func (e *SignalSourceError) Error() string {
	return fmt.Sprintf("signal source %s failed for tenant %s: %v", e.Topic, e.TenantID, e.Err)
}

func (e *SignalSourceError) Unwrap() error { return e.Err }

// PersistenceError reports a store read or write failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

package core

import (
	"errors"
	"fmt"
)

// Error categories. Typed errors below match them through errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
)

var (
	ErrInvalidDay       = errors.New("invalid day of month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidDateKey   = errors.New("invalid date key")
	ErrInvalidState     = errors.New("invalid occurrence state")
	ErrNotPending       = errors.New("occurrence is not pending")
	ErrInvalidPercent   = errors.New("invalid notify percent")
	ErrOccurrenceExists = errors.New("occurrence already exists for month")
	ErrCategoryInUse    = errors.New("category is used by expenses")
	ErrCategoryInactive = errors.New("category is inactive")
)

// ValidationError reports an input that failed a precondition before any write.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := e.Reason
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field == "" {
		return "validation: " + msg
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, msg)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a ValidationError wrapping a sentinel cause.
func NewValidationError(field string, cause error, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Err: cause}
}

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps a failed read or write of the storage collaborator.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// WrapStorage returns nil for a nil error, leaves typed domain errors untouched and
// wraps everything else in a StorageError.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrStorage) || errors.Is(err, ErrOccurrenceExists) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err is a missing-entity failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsStorage reports whether err is a storage collaborator failure.
func IsStorage(err error) bool { return errors.Is(err, ErrStorage) }

package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. Entity-specific variants below wrap it.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update affects no rows.
	ErrUpdateFailed = errors.New("update failed")

	// Entity-specific "not found" errors

	// ErrSubmissionNotFound indicates that the requested submission does not exist.
	ErrSubmissionNotFound = fmt.Errorf("%w: submission", ErrNotFound)

	// ErrProgressionNotFound indicates that no progression record exists for the key.
	ErrProgressionNotFound = fmt.Errorf("%w: progression record", ErrNotFound)

	// ErrAggregateNotFound indicates that no user aggregate exists for the user.
	ErrAggregateNotFound = fmt.Errorf("%w: user aggregate", ErrNotFound)

	// ErrCardNotFound indicates that the requested flashcard does not exist.
	ErrCardNotFound = fmt.Errorf("%w: flashcard", ErrNotFound)

	// ErrCardStateNotFound indicates that no scheduling state exists for the (user, card) pair.
	ErrCardStateNotFound = fmt.Errorf("%w: flashcard state", ErrNotFound)

	// ErrLessonNotFound indicates that the requested lesson does not exist.
	ErrLessonNotFound = fmt.Errorf("%w: lesson", ErrNotFound)

	// ErrQuestNotFound indicates that the requested quest does not exist.
	ErrQuestNotFound = fmt.Errorf("%w: quest", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError is a custom error type for store-specific errors with
// additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "submission", "flashcard")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

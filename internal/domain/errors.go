package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidReviewGrade is returned when a review grade is not valid.
	ErrInvalidReviewGrade = errors.New("invalid review grade")

	// ErrInvalidSubmissionStatus is returned when a submission status is not valid.
	ErrInvalidSubmissionStatus = errors.New("invalid submission status")

	// ErrSubmissionResolved is returned when a mutation is attempted on a
	// submission that has already reached a terminal status.
	ErrSubmissionResolved = errors.New("submission already resolved")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

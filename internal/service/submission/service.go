// Package submission implements the defense state machine: a proof is
// validated, a comprehension challenge is issued, and the learner's answer
// resolves the submission to passed or failed with its progression side
// effects applied atomically.
package submission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/domain"
)

// SubmitProofRequest carries one proof attempt against a lesson or a quest.
// Exactly one of LessonID/QuestID must be set, and at least one of
// ProofText/UploadRef.
type SubmitProofRequest struct {
	UserID             uuid.UUID
	LessonID           *uuid.UUID
	QuestID            *uuid.UUID
	ProofText          string
	UploadRef          string
	CodeSnapshot       string
	ManualPassOverride bool
}

// SubmitProofResponse reports the immediate outcome of a proof submission.
// A pending status means a defense challenge was issued and Message carries
// the challenge question.
type SubmitProofResponse struct {
	SubmissionID uuid.UUID               `json:"submission_id"`
	Status       domain.SubmissionStatus `json:"status"`
	Message      string                  `json:"message"`
}

// ContinueDefenseRequest carries a learner's answer to a pending defense.
type ContinueDefenseRequest struct {
	UserID       uuid.UUID
	SubmissionID uuid.UUID
	AnswerText   string
	CodeSnapshot string
}

// ContinueDefenseResponse reports the resolved state of a defense. Retrying
// a resolved submission returns the stored outcome with no new side effects.
type ContinueDefenseResponse struct {
	Status            domain.SubmissionStatus `json:"status"`
	Message           string                  `json:"message"`
	Verdict           domain.DefenseVerdict   `json:"verdict"`
	CoachMode         string                  `json:"coach_mode,omitempty"`
	NextActions       []string                `json:"next_actions,omitempty"`
	FlashcardsCreated int                     `json:"flashcards_created"`
	XPAwarded         int                     `json:"xp_awarded"`
}

// Service is the submission engine's public surface.
type Service interface {
	// SubmitProof validates a proof against its target's declared rules.
	// On a failed check it records a failed submission immediately; on a
	// passing check it issues a defense challenge and leaves the submission
	// pending. No XP or progression moves until the defense is passed.
	SubmitProof(ctx context.Context, req SubmitProofRequest) (*SubmitProofResponse, error)

	// ContinueDefense grades the learner's answer to a pending defense and
	// resolves the submission. The pending to terminal transition and every
	// pass side effect commit in one transaction; calling it again after
	// resolution returns the stored outcome idempotently.
	ContinueDefense(ctx context.Context, req ContinueDefenseRequest) (*ContinueDefenseResponse, error)

	// GetSubmission retrieves a submission owned by the user.
	GetSubmission(ctx context.Context, userID, submissionID uuid.UUID) (*domain.Submission, error)
}

// Common error types for the submission service.
var (
	// ErrSubmissionNotFound indicates that the submission does not exist.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrTargetNotFound indicates that the targeted lesson or quest does not exist.
	ErrTargetNotFound = errors.New("submission target not found")

	// ErrNotOwned indicates that the submission belongs to a different user.
	ErrNotOwned = errors.New("unauthorized access: submission not owned by user")

	// ErrEmptyAnswer indicates an empty defense answer. The oracle is never
	// contacted for one.
	ErrEmptyAnswer = errors.New("defense answer cannot be empty")
)

// ServiceError wraps errors from the submission service with additional
// context so consumers can differentiate failures with errors.As instead of
// string matching.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewSubmitProofError returns a new ServiceError for the submit_proof operation.
func NewSubmitProofError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "submit_proof", Message: message, Err: err}
}

// NewContinueDefenseError returns a new ServiceError for the continue_defense operation.
func NewContinueDefenseError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "continue_defense", Message: message, Err: err}
}

package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/domain"
)

// SubmissionStore defines the interface for submission persistence.
type SubmissionStore interface {
	// Create saves a new submission. Returns validation errors if the
	// submission data is invalid.
	Create(ctx context.Context, sub *domain.Submission) error

	// GetByID retrieves a submission by its unique ID.
	// Returns ErrSubmissionNotFound if the submission does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error)

	// GetForUpdate retrieves a submission by ID with a row lock, so two
	// concurrent defense-answer calls for the same submission serialize and
	// the second observes the terminal status written by the first.
	// MUST be called within a transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Submission, error)

	// Update persists the submission's status, defense metadata, and XP
	// award. Returns ErrSubmissionNotFound if no row was updated.
	Update(ctx context.Context, sub *domain.Submission) error

	// CountPassedForLesson counts PASSED submissions for (user, lesson),
	// excluding the given submission ID. A zero count inside the resolving
	// transaction identifies a first pass.
	CountPassedForLesson(ctx context.Context, userID, lessonID, excludeID uuid.UUID) (int, error)

	// CountPassedForQuest is CountPassedForLesson keyed on a quest.
	CountPassedForQuest(ctx context.Context, userID, questID, excludeID uuid.UUID) (int, error)

	// WithTx returns a SubmissionStore bound to the given transaction.
	WithTx(tx *sql.Tx) SubmissionStore
}

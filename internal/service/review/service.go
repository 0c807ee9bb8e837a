// Package review implements flashcard study sessions: the three-bucket
// review queue, SM-2 grading, interval previews, card authoring, and
// suspension.
package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/domain"
	"github.com/praxislabs/mastery-api/internal/domain/srs"
)

// QueueCard pairs a flashcard with the user's scheduling state for it.
type QueueCard struct {
	Card     *domain.Flashcard          `json:"card"`
	State    *domain.UserFlashcardState `json:"state"`
	Maturity srs.Maturity               `json:"maturity"`
}

// Queue is one review session's worth of cards, split into the three
// disjoint buckets. Learning cards come first, then due cards, then new
// cards capped at the session limit.
type Queue struct {
	Learning []QueueCard `json:"learning"`
	Due      []QueueCard `json:"due"`
	New      []QueueCard `json:"new"`
}

// CreateCardRequest carries a manually authored flashcard.
type CreateCardRequest struct {
	UserID    uuid.UUID
	Front     string
	Back      string
	Type      domain.CardType
	Hint      string
	Tags      map[string]string
	SourceRef string
}

// Stats summarizes a user's collection by maturity for the analytics view.
type Stats struct {
	New       int `json:"new"`
	Learning  int `json:"learning"`
	Mature    int `json:"mature"`
	Suspended int `json:"suspended"`
	DueNow    int `json:"due_now"`
}

// Service is the review engine's public surface.
type Service interface {
	// GetQueue assembles the user's current review session.
	GetQueue(ctx context.Context, userID uuid.UUID) (*Queue, error)

	// GradeCard applies a review grade to a card's scheduling state and
	// returns the new state. Grading the same card concurrently serializes
	// on a row lock.
	GradeCard(ctx context.Context, userID, cardID uuid.UUID, grade domain.ReviewGrade) (*domain.UserFlashcardState, error)

	// PreviewCard returns the interval each grade would produce for a card
	// without touching its stored state.
	PreviewCard(ctx context.Context, userID, cardID uuid.UUID) (*srs.Preview, error)

	// CreateCard authors a new flashcard and its initial scheduling state.
	CreateCard(ctx context.Context, req CreateCardRequest) (*domain.Flashcard, error)

	// CreateCards authors a batch of flashcards in one transaction, each
	// with fresh scheduling state. All-or-nothing: one invalid card rejects
	// the whole batch.
	CreateCards(ctx context.Context, reqs []CreateCardRequest) ([]*domain.Flashcard, error)

	// BrowseCards lists the user's whole collection, suspended included.
	BrowseCards(ctx context.Context, userID uuid.UUID) ([]QueueCard, error)

	// SuspendCard removes a card from scheduling queues without losing its
	// history. UnsuspendCard reverses it.
	SuspendCard(ctx context.Context, userID, cardID uuid.UUID) error
	UnsuspendCard(ctx context.Context, userID, cardID uuid.UUID) error

	// GetStats summarizes the user's collection by maturity.
	GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error)

	// ListDueLessonReviews lists the lesson review items currently due.
	ListDueLessonReviews(ctx context.Context, userID uuid.UUID) ([]*domain.ReviewItem, error)
}

// Common error types for the review service.
var (
	// ErrCardNotFound indicates that the card does not exist.
	ErrCardNotFound = errors.New("card not found")

	// ErrCardStateNotFound indicates that no scheduling state exists for the card.
	ErrCardStateNotFound = errors.New("card state not found")

	// ErrCardNotOwned indicates that the user does not own the card.
	ErrCardNotOwned = errors.New("unauthorized access: card not owned by user")

	// ErrInvalidGrade indicates an unknown review grade.
	ErrInvalidGrade = errors.New("invalid review grade")
)

// ServiceError wraps errors from the review service with additional context.
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

func newServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}

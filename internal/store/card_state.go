package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/domain"
)

// DueCount pairs a user with the number of cards due for review, used by
// the daily digest job.
type DueCount struct {
	UserID uuid.UUID
	Due    int
}

// CardStateStore defines the interface for per-(user, card) scheduling
// state. The three List* queue methods encode the disjoint session buckets
// in SQL; suspended cards are excluded from all of them.
type CardStateStore interface {
	// Get retrieves the scheduling state for (user, card).
	// Returns ErrCardStateNotFound if none exists.
	Get(ctx context.Context, userID, cardID uuid.UUID) (*domain.UserFlashcardState, error)

	// GetForUpdate retrieves the state with a row lock so concurrent
	// grading of the same (user, card) serializes. MUST be called within a
	// transaction.
	GetForUpdate(ctx context.Context, userID, cardID uuid.UUID) (*domain.UserFlashcardState, error)

	// Upsert inserts or updates the state keyed by (user, card).
	Upsert(ctx context.Context, state *domain.UserFlashcardState) error

	// ListByUser lists all scheduling state for a user, suspended included
	// (browse view).
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.UserFlashcardState, error)

	// ListLearning lists unsuspended cards with repetitions > 0 and an
	// interval below youngThresholdDays, ordered by due time.
	ListLearning(ctx context.Context, userID uuid.UUID, youngThresholdDays int) ([]*domain.UserFlashcardState, error)

	// ListDue lists unsuspended reviewed-at-least-once cards due at or
	// before asOf that do not fall in the learning bucket, ordered by due
	// time. Lapsed cards (repetitions reset to zero) stay eligible.
	ListDue(ctx context.Context, userID uuid.UUID, asOf time.Time, youngThresholdDays int) ([]*domain.UserFlashcardState, error)

	// ListNew lists unsuspended never-reviewed cards, capped at limit.
	ListNew(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.UserFlashcardState, error)

	// CountDueByUser counts due unsuspended cards per user across the whole
	// platform, for the daily digest.
	CountDueByUser(ctx context.Context, asOf time.Time) ([]DueCount, error)

	// WithTx returns a CardStateStore bound to the given transaction.
	WithTx(tx *sql.Tx) CardStateStore
}

package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/domain"
)

// FlashcardStore defines the interface for flashcard content persistence.
type FlashcardStore interface {
	// Create saves a new flashcard.
	Create(ctx context.Context, card *domain.Flashcard) error

	// CreateMultiple saves a batch of flashcards atomically. MUST be called
	// within a transaction.
	CreateMultiple(ctx context.Context, cards []*domain.Flashcard) error

	// GetByID retrieves a flashcard by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error)

	// ListByUser lists all of a user's flashcards, suspended ones included.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Flashcard, error)

	// WithTx returns a FlashcardStore bound to the given transaction.
	WithTx(tx *sql.Tx) FlashcardStore
}

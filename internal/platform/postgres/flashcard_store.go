package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/domain"
	"github.com/praxislabs/mastery-api/internal/platform/logger"
	"github.com/praxislabs/mastery-api/internal/store"
)

// PostgresFlashcardStore implements the store.FlashcardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresFlashcardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresFlashcardStore creates a new PostgreSQL implementation of the
// FlashcardStore interface. If logger is nil, a default logger is used.
func NewPostgresFlashcardStore(db store.DBTX, log *slog.Logger) *PostgresFlashcardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresFlashcardStore{
		db:     db,
		logger: log.With(slog.String("component", "flashcard_store")),
	}
}

var _ store.FlashcardStore = (*PostgresFlashcardStore)(nil)

// WithTx implements store.FlashcardStore.WithTx.
func (s *PostgresFlashcardStore) WithTx(tx *sql.Tx) store.FlashcardStore {
	return &PostgresFlashcardStore{db: tx, logger: s.logger}
}

const flashcardInsertQuery = `
	INSERT INTO flashcards
		(id, user_id, front, back, type, hint, tags, source_ref, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// Create implements store.FlashcardStore.Create.
func (s *PostgresFlashcardStore) Create(ctx context.Context, card *domain.Flashcard) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	tags, err := marshalTags(card.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, flashcardInsertQuery,
		card.ID, card.UserID, card.Front, card.Back, card.Type,
		card.Hint, tags, card.SourceRef, card.CreatedAt, card.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create flashcard",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return err
	}

	log.Info("flashcard created",
		slog.String("card_id", card.ID.String()),
		slog.String("user_id", card.UserID.String()),
		slog.String("type", string(card.Type)))
	return nil
}

// CreateMultiple implements store.FlashcardStore.CreateMultiple.
func (s *PostgresFlashcardStore) CreateMultiple(ctx context.Context, cards []*domain.Flashcard) error {
	for _, card := range cards {
		if err := s.Create(ctx, card); err != nil {
			return err
		}
	}
	return nil
}

// GetByID implements store.FlashcardStore.GetByID.
func (s *PostgresFlashcardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error) {
	query := `
		SELECT id, user_id, front, back, type, hint, tags, source_ref, created_at, updated_at
		FROM flashcards WHERE id = $1
	`

	card, err := scanFlashcard(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get flashcard: %w", err)
	}
	return card, nil
}

// ListByUser implements store.FlashcardStore.ListByUser.
func (s *PostgresFlashcardStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Flashcard, error) {
	query := `
		SELECT id, user_id, front, back, type, hint, tags, source_ref, created_at, updated_at
		FROM flashcards WHERE user_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flashcards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cards []*domain.Flashcard
	for rows.Next() {
		card, err := scanFlashcard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flashcard: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flashcards: %w", err)
	}

	return cards, nil
}

func scanFlashcard(row rowScanner) (*domain.Flashcard, error) {
	var (
		card domain.Flashcard
		tags []byte
	)
	err := row.Scan(
		&card.ID, &card.UserID, &card.Front, &card.Back, &card.Type,
		&card.Hint, &tags, &card.SourceRef, &card.CreatedAt, &card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &card.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal flashcard tags: %w", err)
		}
	}
	return &card, nil
}

func marshalTags(tags map[string]string) ([]byte, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal flashcard tags: %w", err)
	}
	return data, nil
}

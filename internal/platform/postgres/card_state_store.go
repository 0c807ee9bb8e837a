package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/domain"
	"github.com/praxislabs/mastery-api/internal/platform/logger"
	"github.com/praxislabs/mastery-api/internal/store"
)

// PostgresCardStateStore implements the store.CardStateStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStateStore creates a new PostgreSQL implementation of the
// CardStateStore interface. If logger is nil, a default logger is used.
func NewPostgresCardStateStore(db store.DBTX, log *slog.Logger) *PostgresCardStateStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresCardStateStore{
		db:     db,
		logger: log.With(slog.String("component", "card_state_store")),
	}
}

var _ store.CardStateStore = (*PostgresCardStateStore)(nil)

// WithTx implements store.CardStateStore.WithTx.
func (s *PostgresCardStateStore) WithTx(tx *sql.Tx) store.CardStateStore {
	return &PostgresCardStateStore{db: tx, logger: s.logger}
}

const cardStateColumns = `
	user_id, card_id, ease_factor, interval_days, repetitions, lapse_count,
	due_at, last_reviewed_at, suspended, created_at, updated_at
`

// Get implements store.CardStateStore.Get.
func (s *PostgresCardStateStore) Get(ctx context.Context, userID, cardID uuid.UUID) (*domain.UserFlashcardState, error) {
	query := `SELECT ` + cardStateColumns + `
		FROM flashcard_states WHERE user_id = $1 AND card_id = $2`

	state, err := scanCardState(s.db.QueryRowContext(ctx, query, userID, cardID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardStateNotFound
		}
		return nil, fmt.Errorf("failed to get card state: %w", err)
	}
	return state, nil
}

// GetForUpdate implements store.CardStateStore.GetForUpdate. The row lock
// serializes concurrent grading of the same (user, card); last-writer-wins
// is not acceptable because the new state depends on the old.
func (s *PostgresCardStateStore) GetForUpdate(
	ctx context.Context,
	userID, cardID uuid.UUID,
) (*domain.UserFlashcardState, error) {
	query := `SELECT ` + cardStateColumns + `
		FROM flashcard_states WHERE user_id = $1 AND card_id = $2 FOR UPDATE`

	state, err := scanCardState(s.db.QueryRowContext(ctx, query, userID, cardID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardStateNotFound
		}
		return nil, fmt.Errorf("failed to lock card state: %w", err)
	}
	return state, nil
}

// Upsert implements store.CardStateStore.Upsert.
func (s *PostgresCardStateStore) Upsert(ctx context.Context, state *domain.UserFlashcardState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := state.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO flashcard_states
			(user_id, card_id, ease_factor, interval_days, repetitions, lapse_count,
			 due_at, last_reviewed_at, suspended, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, card_id) DO UPDATE SET
			ease_factor      = EXCLUDED.ease_factor,
			interval_days    = EXCLUDED.interval_days,
			repetitions      = EXCLUDED.repetitions,
			lapse_count      = EXCLUDED.lapse_count,
			due_at           = EXCLUDED.due_at,
			last_reviewed_at = EXCLUDED.last_reviewed_at,
			suspended        = EXCLUDED.suspended,
			updated_at       = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		state.UserID, state.CardID, state.EaseFactor, state.IntervalDays,
		state.Repetitions, state.LapseCount, state.DueAt,
		nullableTime(state.LastReviewedAt), state.Suspended,
		state.CreatedAt, state.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: card state references unknown card", store.ErrInvalidEntity)
		}
		log.Error("failed to upsert card state",
			slog.String("error", err.Error()),
			slog.String("user_id", state.UserID.String()),
			slog.String("card_id", state.CardID.String()))
		return err
	}

	return nil
}

// ListByUser implements store.CardStateStore.ListByUser.
func (s *PostgresCardStateStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.UserFlashcardState, error) {
	query := `SELECT ` + cardStateColumns + `
		FROM flashcard_states WHERE user_id = $1
		ORDER BY created_at ASC`

	return s.list(ctx, query, userID)
}

// ListLearning implements store.CardStateStore.ListLearning.
func (s *PostgresCardStateStore) ListLearning(
	ctx context.Context,
	userID uuid.UUID,
	youngThresholdDays int,
) ([]*domain.UserFlashcardState, error) {
	query := `SELECT ` + cardStateColumns + `
		FROM flashcard_states
		WHERE user_id = $1 AND NOT suspended
		  AND repetitions > 0 AND interval_days < $2
		ORDER BY due_at ASC`

	return s.list(ctx, query, userID, youngThresholdDays)
}

// ListDue implements store.CardStateStore.ListDue.
func (s *PostgresCardStateStore) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	asOf time.Time,
	youngThresholdDays int,
) ([]*domain.UserFlashcardState, error) {
	query := `SELECT ` + cardStateColumns + `
		FROM flashcard_states
		WHERE user_id = $1 AND NOT suspended
		  AND due_at <= $2
		  AND NOT (repetitions > 0 AND interval_days < $3)
		  AND last_reviewed_at IS NOT NULL
		ORDER BY due_at ASC`

	return s.list(ctx, query, userID, asOf, youngThresholdDays)
}

// ListNew implements store.CardStateStore.ListNew.
func (s *PostgresCardStateStore) ListNew(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]*domain.UserFlashcardState, error) {
	query := `SELECT ` + cardStateColumns + `
		FROM flashcard_states
		WHERE user_id = $1 AND NOT suspended AND repetitions = 0 AND last_reviewed_at IS NULL
		ORDER BY created_at ASC
		LIMIT $2`

	return s.list(ctx, query, userID, limit)
}

// CountDueByUser implements store.CardStateStore.CountDueByUser.
func (s *PostgresCardStateStore) CountDueByUser(ctx context.Context, asOf time.Time) ([]store.DueCount, error) {
	query := `
		SELECT user_id, COUNT(*)
		FROM flashcard_states
		WHERE NOT suspended AND due_at <= $1
		GROUP BY user_id
		ORDER BY COUNT(*) DESC
	`
	rows, err := s.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to count due cards by user: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []store.DueCount
	for rows.Next() {
		var dc store.DueCount
		if err := rows.Scan(&dc.UserID, &dc.Due); err != nil {
			return nil, fmt.Errorf("failed to scan due count: %w", err)
		}
		counts = append(counts, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate due counts: %w", err)
	}

	return counts, nil
}

func (s *PostgresCardStateStore) list(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.UserFlashcardState, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list card states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []*domain.UserFlashcardState
	for rows.Next() {
		state, err := scanCardState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card state: %w", err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate card states: %w", err)
	}

	return states, nil
}

func scanCardState(row rowScanner) (*domain.UserFlashcardState, error) {
	var (
		state      domain.UserFlashcardState
		reviewedAt sql.NullTime
	)
	err := row.Scan(
		&state.UserID, &state.CardID, &state.EaseFactor, &state.IntervalDays,
		&state.Repetitions, &state.LapseCount, &state.DueAt, &reviewedAt,
		&state.Suspended, &state.CreatedAt, &state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reviewedAt.Valid {
		state.LastReviewedAt = reviewedAt.Time
	}
	return &state, nil
}

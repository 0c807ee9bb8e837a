package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/domain"
	"github.com/praxislabs/mastery-api/internal/platform/logger"
	"github.com/praxislabs/mastery-api/internal/store"
)

// PostgresReviewItemStore implements the store.ReviewItemStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReviewItemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewItemStore creates a new PostgreSQL implementation of the
// ReviewItemStore interface. If logger is nil, a default logger is used.
func NewPostgresReviewItemStore(db store.DBTX, log *slog.Logger) *PostgresReviewItemStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresReviewItemStore{
		db:     db,
		logger: log.With(slog.String("component", "review_item_store")),
	}
}

var _ store.ReviewItemStore = (*PostgresReviewItemStore)(nil)

// WithTx implements store.ReviewItemStore.WithTx.
func (s *PostgresReviewItemStore) WithTx(tx *sql.Tx) store.ReviewItemStore {
	return &PostgresReviewItemStore{db: tx, logger: s.logger}
}

// CreateMultiple implements store.ReviewItemStore.CreateMultiple.
func (s *PostgresReviewItemStore) CreateMultiple(ctx context.Context, items []*domain.ReviewItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO review_items (id, user_id, lesson_id, due_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
		if _, err := s.db.ExecContext(ctx, query,
			item.ID, item.UserID, item.LessonID, item.DueAt, item.CreatedAt,
		); err != nil {
			log.Error("failed to create review item",
				slog.String("error", err.Error()),
				slog.String("review_item_id", item.ID.String()))
			return err
		}
	}

	log.Info("review schedule created",
		slog.Int("items", len(items)))
	return nil
}

// CountForLesson implements store.ReviewItemStore.CountForLesson.
func (s *PostgresReviewItemStore) CountForLesson(ctx context.Context, userID, lessonID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM review_items WHERE user_id = $1 AND lesson_id = $2`

	var count int
	if err := s.db.QueryRowContext(ctx, query, userID, lessonID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count review items: %w", err)
	}
	return count, nil
}

// ListDue implements store.ReviewItemStore.ListDue.
func (s *PostgresReviewItemStore) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	asOf time.Time,
) ([]*domain.ReviewItem, error) {
	query := `
		SELECT id, user_id, lesson_id, due_at, created_at
		FROM review_items
		WHERE user_id = $1 AND due_at <= $2
		ORDER BY due_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list due review items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*domain.ReviewItem
	for rows.Next() {
		var item domain.ReviewItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.LessonID, &item.DueAt, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review item: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review items: %w", err)
	}

	return items, nil
}

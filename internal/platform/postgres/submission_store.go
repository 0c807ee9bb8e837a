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

// PostgresSubmissionStore implements the store.SubmissionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSubmissionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSubmissionStore creates a new PostgreSQL implementation of the
// SubmissionStore interface. If logger is nil, a default logger is used.
func NewPostgresSubmissionStore(db store.DBTX, log *slog.Logger) *PostgresSubmissionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresSubmissionStore{
		db:     db,
		logger: log.With(slog.String("component", "submission_store")),
	}
}

var _ store.SubmissionStore = (*PostgresSubmissionStore)(nil)

// WithTx implements store.SubmissionStore.WithTx.
func (s *PostgresSubmissionStore) WithTx(tx *sql.Tx) store.SubmissionStore {
	return &PostgresSubmissionStore{db: tx, logger: s.logger}
}

// Create implements store.SubmissionStore.Create.
func (s *PostgresSubmissionStore) Create(ctx context.Context, sub *domain.Submission) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := sub.Validate(); err != nil {
		log.Warn("submission validation failed during create",
			slog.String("error", err.Error()),
			slog.String("submission_id", sub.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	meta, err := marshalDefenseMeta(sub.DefenseMeta)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO submissions
			(id, user_id, lesson_id, quest_id, status, proof_text, upload_ref,
			 defense_meta, xp_awarded, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(ctx, query,
		sub.ID, sub.UserID, sub.LessonID, sub.QuestID, sub.Status,
		sub.ProofText, sub.UploadRef, meta, sub.XPAwarded,
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: submission references unknown user or content", store.ErrInvalidEntity)
		}
		log.Error("failed to create submission",
			slog.String("error", err.Error()),
			slog.String("submission_id", sub.ID.String()))
		return err
	}

	log.Info("submission created",
		slog.String("submission_id", sub.ID.String()),
		slog.String("user_id", sub.UserID.String()),
		slog.String("status", string(sub.Status)))
	return nil
}

// GetByID implements store.SubmissionStore.GetByID.
func (s *PostgresSubmissionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	return s.get(ctx, id, false)
}

// GetForUpdate implements store.SubmissionStore.GetForUpdate. The row lock
// serializes concurrent defense-answer calls for the same submission.
func (s *PostgresSubmissionStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	return s.get(ctx, id, true)
}

func (s *PostgresSubmissionStore) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*domain.Submission, error) {
	query := `
		SELECT id, user_id, lesson_id, quest_id, status, proof_text, upload_ref,
		       defense_meta, xp_awarded, created_at, updated_at
		FROM submissions
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		sub  domain.Submission
		meta []byte
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.UserID, &sub.LessonID, &sub.QuestID, &sub.Status,
		&sub.ProofText, &sub.UploadRef, &meta, &sub.XPAwarded,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if len(meta) > 0 {
		var dm domain.DefenseMeta
		if err := json.Unmarshal(meta, &dm); err != nil {
			return nil, fmt.Errorf("failed to unmarshal defense meta: %w", err)
		}
		sub.DefenseMeta = &dm
	}

	return &sub, nil
}

// Update implements store.SubmissionStore.Update.
func (s *PostgresSubmissionStore) Update(ctx context.Context, sub *domain.Submission) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := sub.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	meta, err := marshalDefenseMeta(sub.DefenseMeta)
	if err != nil {
		return err
	}

	query := `
		UPDATE submissions
		SET status = $2, defense_meta = $3, xp_awarded = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		sub.ID, sub.Status, meta, sub.XPAwarded, sub.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to update submission",
			slog.String("error", err.Error()),
			slog.String("submission_id", sub.ID.String()))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrSubmissionNotFound
	}

	log.Info("submission updated",
		slog.String("submission_id", sub.ID.String()),
		slog.String("status", string(sub.Status)))
	return nil
}

// CountPassedForLesson implements store.SubmissionStore.CountPassedForLesson.
func (s *PostgresSubmissionStore) CountPassedForLesson(
	ctx context.Context,
	userID, lessonID, excludeID uuid.UUID,
) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM submissions
		WHERE user_id = $1 AND lesson_id = $2 AND status = $3 AND id <> $4
	`
	var count int
	err := s.db.QueryRowContext(ctx, query, userID, lessonID, domain.SubmissionStatusPassed, excludeID).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count passed lesson submissions: %w", err)
	}
	return count, nil
}

// CountPassedForQuest implements store.SubmissionStore.CountPassedForQuest.
func (s *PostgresSubmissionStore) CountPassedForQuest(
	ctx context.Context,
	userID, questID, excludeID uuid.UUID,
) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM submissions
		WHERE user_id = $1 AND quest_id = $2 AND status = $3 AND id <> $4
	`
	var count int
	err := s.db.QueryRowContext(ctx, query, userID, questID, domain.SubmissionStatusPassed, excludeID).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count passed quest submissions: %w", err)
	}
	return count, nil
}

func marshalDefenseMeta(meta *domain.DefenseMeta) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal defense meta: %w", err)
	}
	return data, nil
}

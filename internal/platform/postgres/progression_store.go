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

// PostgresProgressionStore implements the store.ProgressionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresProgressionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProgressionStore creates a new PostgreSQL implementation of
// the ProgressionStore interface. If logger is nil, a default logger is used.
func NewPostgresProgressionStore(db store.DBTX, log *slog.Logger) *PostgresProgressionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresProgressionStore{
		db:     db,
		logger: log.With(slog.String("component", "progression_store")),
	}
}

var _ store.ProgressionStore = (*PostgresProgressionStore)(nil)

// WithTx implements store.ProgressionStore.WithTx.
func (s *PostgresProgressionStore) WithTx(tx *sql.Tx) store.ProgressionStore {
	return &PostgresProgressionStore{db: tx, logger: s.logger}
}

const progressionColumns = `
	user_id, part_id, completed_lessons, quest_completed,
	last_activity_at, last_streak_date, created_at, updated_at
`

// GetRecord implements store.ProgressionStore.GetRecord.
func (s *PostgresProgressionStore) GetRecord(
	ctx context.Context,
	userID, partID uuid.UUID,
) (*domain.ProgressionRecord, error) {
	query := `SELECT ` + progressionColumns + `
		FROM progression_records WHERE user_id = $1 AND part_id = $2`

	rec, err := scanProgressionRecord(s.db.QueryRowContext(ctx, query, userID, partID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProgressionNotFound
		}
		return nil, fmt.Errorf("failed to get progression record: %w", err)
	}
	return rec, nil
}

// GetLatestRecord implements store.ProgressionStore.GetLatestRecord.
func (s *PostgresProgressionStore) GetLatestRecord(
	ctx context.Context,
	userID uuid.UUID,
) (*domain.ProgressionRecord, error) {
	query := `SELECT ` + progressionColumns + `
		FROM progression_records
		WHERE user_id = $1
		ORDER BY last_activity_at DESC NULLS LAST
		LIMIT 1`

	rec, err := scanProgressionRecord(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProgressionNotFound
		}
		return nil, fmt.Errorf("failed to get latest progression record: %w", err)
	}
	return rec, nil
}

// UpsertRecord implements store.ProgressionStore.UpsertRecord.
func (s *PostgresProgressionStore) UpsertRecord(ctx context.Context, rec *domain.ProgressionRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO progression_records
			(user_id, part_id, completed_lessons, quest_completed,
			 last_activity_at, last_streak_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, part_id) DO UPDATE SET
			completed_lessons = EXCLUDED.completed_lessons,
			quest_completed   = EXCLUDED.quest_completed,
			last_activity_at  = EXCLUDED.last_activity_at,
			last_streak_date  = EXCLUDED.last_streak_date,
			updated_at        = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.UserID, rec.PartID, rec.CompletedLessons, rec.QuestCompleted,
		nullableTime(rec.LastActivityAt), nullableTime(rec.LastStreakDate),
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to upsert progression record",
			slog.String("error", err.Error()),
			slog.String("user_id", rec.UserID.String()),
			slog.String("part_id", rec.PartID.String()))
		return err
	}

	return nil
}

// CountDistinctPassedLessons implements
// store.ProgressionStore.CountDistinctPassedLessons. The join against the
// lessons table scopes the count to one content part.
func (s *PostgresProgressionStore) CountDistinctPassedLessons(
	ctx context.Context,
	userID, partID uuid.UUID,
) (int, error) {
	query := `
		SELECT COUNT(DISTINCT sub.lesson_id)
		FROM submissions sub
		JOIN lessons l ON l.id = sub.lesson_id
		WHERE sub.user_id = $1 AND l.part_id = $2 AND sub.status = $3
	`
	var count int
	err := s.db.QueryRowContext(ctx, query, userID, partID, domain.SubmissionStatusPassed).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count distinct passed lessons: %w", err)
	}
	return count, nil
}

// GetAggregate implements store.ProgressionStore.GetAggregate.
func (s *PostgresProgressionStore) GetAggregate(
	ctx context.Context,
	userID uuid.UUID,
) (*domain.UserAggregate, error) {
	query := `
		SELECT user_id, xp, level, current_streak, longest_streak,
		       last_streak_date, created_at, updated_at
		FROM user_aggregates WHERE user_id = $1
	`

	var (
		agg        domain.UserAggregate
		streakDate sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&agg.UserID, &agg.XP, &agg.Level, &agg.CurrentStreak, &agg.LongestStreak,
		&streakDate, &agg.CreatedAt, &agg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAggregateNotFound
		}
		return nil, fmt.Errorf("failed to get user aggregate: %w", err)
	}
	if streakDate.Valid {
		agg.LastStreakDate = streakDate.Time
	}

	return &agg, nil
}

// UpsertAggregate implements store.ProgressionStore.UpsertAggregate.
func (s *PostgresProgressionStore) UpsertAggregate(ctx context.Context, agg *domain.UserAggregate) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := agg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO user_aggregates
			(user_id, xp, level, current_streak, longest_streak,
			 last_streak_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			xp               = EXCLUDED.xp,
			level            = EXCLUDED.level,
			current_streak   = EXCLUDED.current_streak,
			longest_streak   = EXCLUDED.longest_streak,
			last_streak_date = EXCLUDED.last_streak_date,
			updated_at       = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		agg.UserID, agg.XP, agg.Level, agg.CurrentStreak, agg.LongestStreak,
		nullableTime(agg.LastStreakDate), agg.CreatedAt, agg.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to upsert user aggregate",
			slog.String("error", err.Error()),
			slog.String("user_id", agg.UserID.String()))
		return err
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgressionRecord(row rowScanner) (*domain.ProgressionRecord, error) {
	var (
		rec        domain.ProgressionRecord
		activityAt sql.NullTime
		streakDate sql.NullTime
	)
	err := row.Scan(
		&rec.UserID, &rec.PartID, &rec.CompletedLessons, &rec.QuestCompleted,
		&activityAt, &streakDate, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if activityAt.Valid {
		rec.LastActivityAt = activityAt.Time
	}
	if streakDate.Valid {
		rec.LastStreakDate = streakDate.Time
	}
	return &rec, nil
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

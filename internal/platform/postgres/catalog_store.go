package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/catalog"
	"github.com/praxislabs/mastery-api/internal/proof"
	"github.com/praxislabs/mastery-api/internal/store"
)

// PostgresCatalogStore implements the catalog.Catalog interface against the
// lessons and quests tables. The rows are owned by the content subsystem;
// this store only ever reads them.
type PostgresCatalogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCatalogStore creates a new PostgreSQL implementation of the
// Catalog interface. If logger is nil, a default logger is used.
func NewPostgresCatalogStore(db store.DBTX, log *slog.Logger) *PostgresCatalogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresCatalogStore{
		db:     db,
		logger: log.With(slog.String("component", "catalog_store")),
	}
}

var _ catalog.Catalog = (*PostgresCatalogStore)(nil)

// GetLesson implements catalog.Catalog.GetLesson.
func (s *PostgresCatalogStore) GetLesson(ctx context.Context, id uuid.UUID) (*catalog.Lesson, error) {
	query := `
		SELECT id, part_id, title, xp_reward, review_schedule_days, proof_rules
		FROM lessons WHERE id = $1
	`

	var (
		lesson   catalog.Lesson
		xp       sql.NullInt64
		schedule []byte
		rules    []byte
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&lesson.ID, &lesson.PartID, &lesson.Title, &xp, &schedule, &rules,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrLessonNotFound
		}
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}

	lesson.XPReward = catalog.DefaultLessonXP
	if xp.Valid {
		lesson.XPReward = int(xp.Int64)
	}
	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &lesson.ReviewScheduleDays); err != nil {
			return nil, fmt.Errorf("failed to unmarshal review schedule: %w", err)
		}
	}
	if err := unmarshalProofRules(rules, &lesson.ProofRules); err != nil {
		return nil, err
	}

	return &lesson, nil
}

// GetQuest implements catalog.Catalog.GetQuest.
func (s *PostgresCatalogStore) GetQuest(ctx context.Context, id uuid.UUID) (*catalog.Quest, error) {
	query := `
		SELECT id, part_id, title, xp_reward, proof_rules
		FROM quests WHERE id = $1
	`

	var (
		quest catalog.Quest
		xp    sql.NullInt64
		rules []byte
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&quest.ID, &quest.PartID, &quest.Title, &xp, &rules,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrQuestNotFound
		}
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}

	quest.XPReward = catalog.DefaultQuestXP
	if xp.Valid {
		quest.XPReward = int(xp.Int64)
	}
	if err := unmarshalProofRules(rules, &quest.ProofRules); err != nil {
		return nil, err
	}

	return &quest, nil
}

func unmarshalProofRules(data []byte, rules *proof.Rules) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, rules); err != nil {
		return fmt.Errorf("failed to unmarshal proof rules: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/domain"
)

// ProgressionStore defines the interface for progression records and user
// aggregates. All mutating methods are meant to run inside the same
// transaction as the submission transition that triggers them.
type ProgressionStore interface {
	// GetRecord retrieves the progression record for (user, part).
	// Returns ErrProgressionNotFound if none exists yet.
	GetRecord(ctx context.Context, userID, partID uuid.UUID) (*domain.ProgressionRecord, error)

	// GetLatestRecord retrieves the user's most recently active progression
	// record across all parts. The streak is computed from this single
	// source of truth so multi-part activity on the same day cannot double
	// count. Returns ErrProgressionNotFound for a user with no history.
	GetLatestRecord(ctx context.Context, userID uuid.UUID) (*domain.ProgressionRecord, error)

	// UpsertRecord inserts or updates the record keyed by (user, part).
	UpsertRecord(ctx context.Context, rec *domain.ProgressionRecord) error

	// CountDistinctPassedLessons counts the distinct lessons within a part
	// for which the user has at least one passed submission. Used to
	// recompute CompletedLessons idempotently instead of incrementing it.
	CountDistinctPassedLessons(ctx context.Context, userID, partID uuid.UUID) (int, error)

	// GetAggregate retrieves the user's aggregate stats.
	// Returns ErrAggregateNotFound if the user has none yet.
	GetAggregate(ctx context.Context, userID uuid.UUID) (*domain.UserAggregate, error)

	// UpsertAggregate inserts or updates the user aggregate.
	UpsertAggregate(ctx context.Context, agg *domain.UserAggregate) error

	// WithTx returns a ProgressionStore bound to the given transaction.
	WithTx(tx *sql.Tx) ProgressionStore
}

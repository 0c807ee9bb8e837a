package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/domain"
)

// ReviewItemStore defines the interface for scheduled lesson review items.
type ReviewItemStore interface {
	// CreateMultiple saves a batch of review items. MUST be called within
	// the same transaction as the CountForLesson guard that precedes it.
	CreateMultiple(ctx context.Context, items []*domain.ReviewItem) error

	// CountForLesson counts existing review items for (user, lesson).
	// A non-zero count means the schedule was already created and must not
	// be recreated.
	CountForLesson(ctx context.Context, userID, lessonID uuid.UUID) (int, error)

	// ListDue lists review items due at or before the given time, ordered
	// by due time ascending.
	ListDue(ctx context.Context, userID uuid.UUID, asOf time.Time) ([]*domain.ReviewItem, error)

	// WithTx returns a ReviewItemStore bound to the given transaction.
	WithTx(tx *sql.Tx) ReviewItemStore
}

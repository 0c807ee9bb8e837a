// Package catalog exposes read-only lookups into the platform's content
// catalog. The catalog itself (authoring, rendering, ordering) belongs to
// another subsystem; this engine only needs a lesson or quest's reward,
// part, title, and proof rules.
package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/proof"
)

// Lesson is the slice of catalog data the engine needs for a lesson.
type Lesson struct {
	ID                 uuid.UUID
	PartID             uuid.UUID
	Title              string
	XPReward           int
	ReviewScheduleDays []int
	ProofRules         proof.Rules
}

// Quest is the slice of catalog data the engine needs for a quest.
type Quest struct {
	ID         uuid.UUID
	PartID     uuid.UUID
	Title      string
	XPReward   int
	ProofRules proof.Rules
}

// DefaultLessonXP is awarded for a lesson whose catalog entry does not
// configure a reward.
const DefaultLessonXP = 100

// DefaultQuestXP is awarded for a quest whose catalog entry does not
// configure a reward.
const DefaultQuestXP = 250

// Catalog provides read-only content lookups.
type Catalog interface {
	// GetLesson retrieves lesson data by ID.
	// Returns store.ErrLessonNotFound if the lesson does not exist.
	GetLesson(ctx context.Context, id uuid.UUID) (*Lesson, error)

	// GetQuest retrieves quest data by ID.
	// Returns store.ErrQuestNotFound if the quest does not exist.
	GetQuest(ctx context.Context, id uuid.UUID) (*Quest, error)
}

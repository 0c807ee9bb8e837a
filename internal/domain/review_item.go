package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReviewItem-specific validation errors
var (
	ErrReviewItemIDEmpty       = errors.New("review item ID cannot be empty")
	ErrReviewItemUserIDEmpty   = errors.New("review item user ID cannot be empty")
	ErrReviewItemLessonIDEmpty = errors.New("review item lesson ID cannot be empty")
	ErrReviewItemDueAtZero     = errors.New("review item due time cannot be zero")
)

// ReviewItem is one scheduled future re-exposure of a passed lesson.
// The full set for a (user, lesson) pair is created once, on first pass,
// and never recreated.
type ReviewItem struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	LessonID  uuid.UUID `json:"lesson_id"`
	DueAt     time.Time `json:"due_at"`
	CreatedAt time.Time `json:"created_at"`
}

// NewReviewItem creates a review item due at the given time.
func NewReviewItem(userID, lessonID uuid.UUID, dueAt time.Time) (*ReviewItem, error) {
	item := &ReviewItem{
		ID:        uuid.New(),
		UserID:    userID,
		LessonID:  lessonID,
		DueAt:     dueAt,
		CreatedAt: time.Now().UTC(),
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the ReviewItem has valid data.
func (i *ReviewItem) Validate() error {
	if i.ID == uuid.Nil {
		return ErrReviewItemIDEmpty
	}
	if i.UserID == uuid.Nil {
		return ErrReviewItemUserIDEmpty
	}
	if i.LessonID == uuid.Nil {
		return ErrReviewItemLessonIDEmpty
	}
	if i.DueAt.IsZero() {
		return ErrReviewItemDueAtZero
	}
	return nil
}

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReviewGrade represents the learner's self-assessment of a card review.
type ReviewGrade string

// Possible review grade values, ordered again < hard < good < easy.
const (
	ReviewGradeAgain ReviewGrade = "again"
	ReviewGradeHard  ReviewGrade = "hard"
	ReviewGradeGood  ReviewGrade = "good"
	ReviewGradeEasy  ReviewGrade = "easy"
)

// ReviewGrades lists all valid grades in ascending order.
var ReviewGrades = []ReviewGrade{
	ReviewGradeAgain,
	ReviewGradeHard,
	ReviewGradeGood,
	ReviewGradeEasy,
}

// Common validation errors for UserFlashcardState
var (
	ErrEmptyStateUserID  = errors.New("flashcard state user ID cannot be empty")
	ErrEmptyStateCardID  = errors.New("flashcard state card ID cannot be empty")
	ErrInvalidInterval   = errors.New("interval must be greater than or equal to 0")
	ErrInvalidEaseFactor = errors.New("ease factor must be at least 1.3")
)

// MinEaseFactor is the hard floor below which a card's ease factor never drops.
const MinEaseFactor = 1.3

// DefaultEaseFactor is the starting ease factor for a brand-new card.
const DefaultEaseFactor = 2.5

// UserFlashcardState tracks a user's spaced repetition scheduling state for
// one card. IntervalDays is the sole driver of DueAt; suspended cards keep
// their full state but are excluded from review queues.
type UserFlashcardState struct {
	UserID         uuid.UUID `json:"user_id"`
	CardID         uuid.UUID `json:"card_id"`
	EaseFactor     float64   `json:"ease_factor"`
	IntervalDays   int       `json:"interval_days"`
	Repetitions    int       `json:"repetitions"`
	LapseCount     int       `json:"lapse_count"`
	DueAt          time.Time `json:"due_at"`
	LastReviewedAt time.Time `json:"last_reviewed_at"`
	Suspended      bool      `json:"suspended"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUserFlashcardState creates scheduling state for a user and card with
// default values. New cards are due immediately.
func NewUserFlashcardState(userID, cardID uuid.UUID) (*UserFlashcardState, error) {
	now := time.Now().UTC()
	state := &UserFlashcardState{
		UserID:       userID,
		CardID:       cardID,
		EaseFactor:   DefaultEaseFactor,
		IntervalDays: 0,
		Repetitions:  0,
		LapseCount:   0,
		DueAt:        now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := state.Validate(); err != nil {
		return nil, err
	}

	return state, nil
}

// Validate checks if the UserFlashcardState has valid data.
func (s *UserFlashcardState) Validate() error {
	if s.UserID == uuid.Nil {
		return ErrEmptyStateUserID
	}
	if s.CardID == uuid.Nil {
		return ErrEmptyStateCardID
	}
	if s.IntervalDays < 0 {
		return ErrInvalidInterval
	}
	if s.EaseFactor < MinEaseFactor {
		return ErrInvalidEaseFactor
	}
	return nil
}

// IsNew reports whether the card has never been reviewed.
func (s *UserFlashcardState) IsNew() bool {
	return s.Repetitions == 0 && s.LastReviewedAt.IsZero()
}

// IsValidReviewGrade checks if the given grade is one of the four known values.
func IsValidReviewGrade(grade ReviewGrade) bool {
	switch grade {
	case ReviewGradeAgain, ReviewGradeHard, ReviewGradeGood, ReviewGradeEasy:
		return true
	default:
		return false
	}
}

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// XPPerLevel is the amount of experience required per level.
// Level is always derived as floor(xp/XPPerLevel)+1, never stored out of sync.
const XPPerLevel = 500

// Progression-specific validation errors
var (
	ErrProgressionUserIDEmpty = errors.New("progression record user ID cannot be empty")
	ErrProgressionPartIDEmpty = errors.New("progression record part ID cannot be empty")
	ErrNegativeLessonCount    = errors.New("completed lesson count cannot be negative")
	ErrAggregateUserIDEmpty   = errors.New("user aggregate user ID cannot be empty")
	ErrNegativeXP             = errors.New("xp cannot be negative")
)

// ProgressionRecord tracks a user's progress within one content part.
// CompletedLessons is monotonic non-decreasing and recomputed from distinct
// passed lessons rather than blindly incremented; QuestCompleted is a
// one-way flag.
type ProgressionRecord struct {
	UserID           uuid.UUID `json:"user_id"`
	PartID           uuid.UUID `json:"part_id"`
	CompletedLessons int       `json:"completed_lessons"`
	QuestCompleted   bool      `json:"quest_completed"`
	LastActivityAt   time.Time `json:"last_activity_at"`
	LastStreakDate   time.Time `json:"last_streak_date"` // truncated to calendar day
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewProgressionRecord creates an empty progression record for a user and part.
func NewProgressionRecord(userID, partID uuid.UUID) (*ProgressionRecord, error) {
	now := time.Now().UTC()
	rec := &ProgressionRecord{
		UserID:    userID,
		PartID:    partID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

// Validate checks if the ProgressionRecord has valid data.
func (r *ProgressionRecord) Validate() error {
	if r.UserID == uuid.Nil {
		return ErrProgressionUserIDEmpty
	}
	if r.PartID == uuid.Nil {
		return ErrProgressionPartIDEmpty
	}
	if r.CompletedLessons < 0 {
		return ErrNegativeLessonCount
	}
	return nil
}

// UserAggregate holds the per-user totals mutated by the progression
// ledger: experience, derived level, and streak counters.
type UserAggregate struct {
	UserID         uuid.UUID `json:"user_id"`
	XP             int       `json:"xp"`
	Level          int       `json:"level"`
	CurrentStreak  int       `json:"current_streak"`
	LongestStreak  int       `json:"longest_streak"`
	LastStreakDate time.Time `json:"last_streak_date"` // truncated to calendar day
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUserAggregate creates a zeroed aggregate for a user at level 1.
func NewUserAggregate(userID uuid.UUID) (*UserAggregate, error) {
	if userID == uuid.Nil {
		return nil, ErrAggregateUserIDEmpty
	}

	now := time.Now().UTC()
	return &UserAggregate{
		UserID:    userID,
		XP:        0,
		Level:     1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Validate checks if the UserAggregate has valid data.
func (a *UserAggregate) Validate() error {
	if a.UserID == uuid.Nil {
		return ErrAggregateUserIDEmpty
	}
	if a.XP < 0 {
		return ErrNegativeXP
	}
	return nil
}

// LevelForXP derives the level for a given experience total.
func LevelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}

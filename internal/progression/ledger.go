// Package progression centralizes every mutation of per-user XP, level,
// streak, and part progress behind a single ledger. The lesson-pass and
// quest-pass paths both go through it so the aggregate is never updated by
// two competing code paths.
package progression

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

// Ledger applies the progression side effects of a passing submission. All
// methods expect to run inside the caller's transaction (bind with WithTx)
// so a pass and its XP/streak mutations commit or roll back together.
type Ledger struct {
	progressions store.ProgressionStore
	logger       *slog.Logger
}

// NewLedger creates a Ledger. If log is nil, a default logger is used.
func NewLedger(progressions store.ProgressionStore, log *slog.Logger) *Ledger {
	if progressions == nil {
		panic("progressions cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Ledger{
		progressions: progressions,
		logger:       log.With(slog.String("component", "progression_ledger")),
	}
}

// WithTx returns a Ledger whose stores are bound to the given transaction.
func (l *Ledger) WithTx(tx *sql.Tx) *Ledger {
	return &Ledger{
		progressions: l.progressions.WithTx(tx),
		logger:       l.logger,
	}
}

// PassResult reports what the ledger changed for a single pass.
type PassResult struct {
	XPAwarded     int
	Level         int
	CurrentStreak int
	LongestStreak int
}

// ApplyLessonPass records a lesson pass for the user. XP is awarded only
// when firstPass is true; completed lessons are recomputed from distinct
// passed lessons so a replayed pass cannot inflate the count. The streak is
// refreshed on every pass but its counter moves at most once per day.
func (l *Ledger) ApplyLessonPass(
	ctx context.Context,
	userID, partID uuid.UUID,
	xpReward int,
	firstPass bool,
	now time.Time,
) (*PassResult, error) {
	return l.applyPass(ctx, userID, partID, xpReward, firstPass, false, now)
}

// ApplyQuestPass records a quest pass for the user. Symmetric with
// ApplyLessonPass, plus the part's quest-completed flag is set. The flag is
// one-way; a later failed attempt never clears it.
func (l *Ledger) ApplyQuestPass(
	ctx context.Context,
	userID, partID uuid.UUID,
	xpReward int,
	firstPass bool,
	now time.Time,
) (*PassResult, error) {
	return l.applyPass(ctx, userID, partID, xpReward, firstPass, true, now)
}

func (l *Ledger) applyPass(
	ctx context.Context,
	userID, partID uuid.UUID,
	xpReward int,
	firstPass bool,
	questPass bool,
	now time.Time,
) (*PassResult, error) {
	log := logger.FromContextOrDefault(ctx, l.logger)

	agg, err := l.loadOrCreateAggregate(ctx, userID)
	if err != nil {
		return nil, err
	}

	// The streak looks at the most recently active record across all
	// parts, so it must be read before this pass touches its own record.
	streakStep, err := l.streakStep(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	awarded := 0
	if firstPass {
		awarded = xpReward
		agg.XP += xpReward
		if lvl := domain.LevelForXP(agg.XP); lvl > agg.Level {
			agg.Level = lvl
		}
	}

	applyStreak(agg, streakStep, now)
	agg.UpdatedAt = now
	if err := l.progressions.UpsertAggregate(ctx, agg); err != nil {
		return nil, fmt.Errorf("failed to persist user aggregate: %w", err)
	}

	rec, err := l.loadOrCreateRecord(ctx, userID, partID)
	if err != nil {
		return nil, err
	}

	completed, err := l.progressions.CountDistinctPassedLessons(ctx, userID, partID)
	if err != nil {
		return nil, fmt.Errorf("failed to recompute completed lessons: %w", err)
	}
	if completed > rec.CompletedLessons {
		rec.CompletedLessons = completed
	}
	if questPass {
		rec.QuestCompleted = true
	}
	rec.LastActivityAt = now
	rec.LastStreakDate = truncateToDay(now)
	rec.UpdatedAt = now
	if err := l.progressions.UpsertRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist progression record: %w", err)
	}

	log.Info("progression updated",
		slog.String("user_id", userID.String()),
		slog.String("part_id", partID.String()),
		slog.Int("xp_awarded", awarded),
		slog.Int("level", agg.Level),
		slog.Int("current_streak", agg.CurrentStreak),
		slog.Bool("quest_pass", questPass))

	return &PassResult{
		XPAwarded:     awarded,
		Level:         agg.Level,
		CurrentStreak: agg.CurrentStreak,
		LongestStreak: agg.LongestStreak,
	}, nil
}

// streakDelta describes what the day boundary check decided.
type streakDelta int

const (
	streakNoChange  streakDelta = iota // already counted today
	streakIncrement                    // consecutive day
	streakReset                        // gap or no history
)

// streakStep inspects the user's most recently active progression record
// and decides how the streak counter moves for activity at now.
func (l *Ledger) streakStep(ctx context.Context, userID uuid.UUID, now time.Time) (streakDelta, error) {
	latest, err := l.progressions.GetLatestRecord(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrProgressionNotFound) {
			return streakReset, nil
		}
		return streakReset, fmt.Errorf("failed to load latest progression record: %w", err)
	}

	today := truncateToDay(now)
	last := truncateToDay(latest.LastStreakDate)
	switch {
	case last.Equal(today):
		return streakNoChange, nil
	case last.Equal(today.AddDate(0, 0, -1)):
		return streakIncrement, nil
	default:
		return streakReset, nil
	}
}

func applyStreak(agg *domain.UserAggregate, step streakDelta, now time.Time) {
	switch step {
	case streakIncrement:
		agg.CurrentStreak++
	case streakReset:
		agg.CurrentStreak = 1
	case streakNoChange:
		if agg.CurrentStreak == 0 {
			agg.CurrentStreak = 1
		}
	}
	if agg.CurrentStreak > agg.LongestStreak {
		agg.LongestStreak = agg.CurrentStreak
	}
	agg.LastStreakDate = truncateToDay(now)
}

func (l *Ledger) loadOrCreateAggregate(ctx context.Context, userID uuid.UUID) (*domain.UserAggregate, error) {
	agg, err := l.progressions.GetAggregate(ctx, userID)
	if err == nil {
		return agg, nil
	}
	if !errors.Is(err, store.ErrAggregateNotFound) {
		return nil, fmt.Errorf("failed to load user aggregate: %w", err)
	}
	return domain.NewUserAggregate(userID)
}

func (l *Ledger) loadOrCreateRecord(ctx context.Context, userID, partID uuid.UUID) (*domain.ProgressionRecord, error) {
	rec, err := l.progressions.GetRecord(ctx, userID, partID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, store.ErrProgressionNotFound) {
		return nil, fmt.Errorf("failed to load progression record: %w", err)
	}
	return domain.NewProgressionRecord(userID, partID)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

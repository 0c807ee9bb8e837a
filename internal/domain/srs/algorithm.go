package srs

import (
	"math"
	"time"

	"github.com/praxislabs/mastery-api/internal/domain"
)

// calculateNewEaseFactor determines the new ease factor based on the review
// grade. "Again" and "hard" decrease it, "good" leaves it unchanged, "easy"
// increases it. The result is always clamped to
// [params.MinEaseFactor, params.MaxEaseFactor] so a card can never become
// unschedulably hard or runaway easy.
func calculateNewEaseFactor(
	currentEF float64,
	grade domain.ReviewGrade,
	params *Params,
) float64 {
	newEF := currentEF + params.EaseFactorAdjustment[grade]

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}
	if newEF > params.MaxEaseFactor {
		newEF = params.MaxEaseFactor
	}

	return newEF
}

// calculateNewInterval determines the new interval in days for a review.
//
// Behavior:
//   - "again" resets the interval to the relearning interval.
//   - Cards with no interval history (interval == 0) use the fixed
//     first-review intervals, since ease carries no signal yet.
//   - "hard" grows the interval by the sub-linear hard modifier.
//   - "good" multiplies the interval by the ease factor, never returning
//     less than 1 so growth cannot stall.
//   - "easy" multiplies by the ease factor and the ease bonus.
func calculateNewInterval(
	currentInterval int,
	easeFactor float64,
	grade domain.ReviewGrade,
	params *Params,
) int {
	if grade == domain.ReviewGradeAgain {
		return params.RelearnIntervalDays
	}

	if currentInterval == 0 {
		return params.FirstReviewIntervals[grade]
	}

	switch grade {
	case domain.ReviewGradeHard:
		next := int(math.Round(float64(currentInterval) * params.HardIntervalModifier))
		if next <= currentInterval {
			next = currentInterval + 1
		}
		return next
	case domain.ReviewGradeEasy:
		return int(math.Round(float64(currentInterval) * easeFactor * params.EaseBonus))
	default: // good
		next := int(math.Round(float64(currentInterval) * easeFactor))
		if next < 1 {
			next = 1
		}
		if next <= currentInterval {
			next = currentInterval + 1
		}
		return next
	}
}

// calculateDueAt converts the new interval into the next due time.
// Lapsed cards come back in minutes rather than days so forgotten material
// is reinforced within the same session.
func calculateDueAt(
	interval int,
	grade domain.ReviewGrade,
	now time.Time,
	params *Params,
) time.Time {
	if grade == domain.ReviewGradeAgain && interval == 0 {
		return now.Add(time.Duration(params.AgainReviewMinutes) * time.Minute)
	}
	return now.AddDate(0, 0, interval)
}

// calculateNextState creates a new UserFlashcardState from a review grade,
// leaving the input untouched. Repetitions reset and the lapse counter
// increments on "again"; every other grade increments repetitions.
func calculateNextState(
	state *domain.UserFlashcardState,
	grade domain.ReviewGrade,
	now time.Time,
	params *Params,
) *domain.UserFlashcardState {
	newState := &domain.UserFlashcardState{
		UserID:         state.UserID,
		CardID:         state.CardID,
		EaseFactor:     state.EaseFactor,
		IntervalDays:   state.IntervalDays,
		Repetitions:    state.Repetitions,
		LapseCount:     state.LapseCount,
		DueAt:          state.DueAt,
		LastReviewedAt: state.LastReviewedAt,
		Suspended:      state.Suspended,
		CreatedAt:      state.CreatedAt,
		UpdatedAt:      state.UpdatedAt,
	}

	newState.EaseFactor = calculateNewEaseFactor(state.EaseFactor, grade, params)

	if grade == domain.ReviewGradeAgain {
		newState.Repetitions = 0
		newState.LapseCount = state.LapseCount + 1
	} else {
		newState.Repetitions = state.Repetitions + 1
	}

	newState.IntervalDays = calculateNewInterval(state.IntervalDays, newState.EaseFactor, grade, params)
	newState.DueAt = calculateDueAt(newState.IntervalDays, grade, now, params)
	newState.LastReviewedAt = now
	newState.UpdatedAt = now

	return newState
}

// Maturity classifies a card's scheduling state for analytics.
type Maturity string

const (
	MaturityNew      Maturity = "new"
	MaturityLearning Maturity = "learning"
	MaturityMature   Maturity = "mature"
)

// ClassifyMaturity reports whether a card is new, learning, or mature based
// on its repetition and interval history.
func ClassifyMaturity(state *domain.UserFlashcardState, params *Params) Maturity {
	if state.Repetitions == 0 {
		return MaturityNew
	}
	if state.IntervalDays < params.YoungThresholdDays {
		return MaturityLearning
	}
	return MaturityMature
}

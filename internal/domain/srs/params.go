package srs

import (
	"github.com/praxislabs/mastery-api/internal/domain"
)

// Params defines all configurable parameters for the SRS algorithm.
type Params struct {
	// Core limits
	MinEaseFactor float64
	MaxEaseFactor float64

	// EaseBonus is the extra multiplier applied on top of the ease factor
	// for "easy" reviews.
	EaseBonus float64

	// Adjustments for different review grades
	EaseFactorAdjustment map[domain.ReviewGrade]float64

	// HardIntervalModifier is the sub-linear growth multiplier for "hard"
	// reviews. It must stay below any realistic ease factor.
	HardIntervalModifier float64

	// FirstReviewIntervals gives the fixed interval in days for a card with
	// no interval history, per grade. Ease has no signal yet for such cards
	// so the multiplicative formula does not apply.
	FirstReviewIntervals map[domain.ReviewGrade]int

	// RelearnIntervalDays is the interval a lapsed card drops back to.
	RelearnIntervalDays int

	// AgainReviewMinutes is how soon a lapsed card resurfaces, in minutes.
	AgainReviewMinutes int

	// YoungThresholdDays separates learning cards from mature cards.
	YoungThresholdDays int
}

// ParamsConfig allows overriding the default parameters when creating a new
// Params instance. Zero values leave the default in place.
type ParamsConfig struct {
	MinEaseFactor float64
	MaxEaseFactor float64
	EaseBonus     float64

	AgainEaseFactorAdjustment float64
	HardEaseFactorAdjustment  float64
	EasyEaseFactorAdjustment  float64

	HardIntervalModifier float64

	FirstReviewHardInterval int
	FirstReviewGoodInterval int
	FirstReviewEasyInterval int

	RelearnIntervalDays int
	AgainReviewMinutes  int
	YoungThresholdDays  int
}

// NewDefaultParams creates a new Params instance with default values.
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor: domain.MinEaseFactor,
		MaxEaseFactor: 2.5,
		EaseBonus:     1.3,

		EaseFactorAdjustment: map[domain.ReviewGrade]float64{
			domain.ReviewGradeAgain: -0.20,
			domain.ReviewGradeHard:  -0.15,
			domain.ReviewGradeGood:  0.0,
			domain.ReviewGradeEasy:  0.15,
		},

		HardIntervalModifier: 1.2,

		FirstReviewIntervals: map[domain.ReviewGrade]int{
			domain.ReviewGradeAgain: 0,
			domain.ReviewGradeHard:  1,
			domain.ReviewGradeGood:  1,
			domain.ReviewGradeEasy:  4,
		},

		RelearnIntervalDays: 0,
		AgainReviewMinutes:  10,
		YoungThresholdDays:  21,
	}
}

// NewParams creates a new Params instance with custom configuration.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.MaxEaseFactor > 0 {
		params.MaxEaseFactor = config.MaxEaseFactor
	}
	if config.EaseBonus > 0 {
		params.EaseBonus = config.EaseBonus
	}

	if config.AgainEaseFactorAdjustment != 0 {
		params.EaseFactorAdjustment[domain.ReviewGradeAgain] = config.AgainEaseFactorAdjustment
	}
	if config.HardEaseFactorAdjustment != 0 {
		params.EaseFactorAdjustment[domain.ReviewGradeHard] = config.HardEaseFactorAdjustment
	}
	if config.EasyEaseFactorAdjustment != 0 {
		params.EaseFactorAdjustment[domain.ReviewGradeEasy] = config.EasyEaseFactorAdjustment
	}

	if config.HardIntervalModifier > 0 {
		params.HardIntervalModifier = config.HardIntervalModifier
	}

	if config.FirstReviewHardInterval > 0 {
		params.FirstReviewIntervals[domain.ReviewGradeHard] = config.FirstReviewHardInterval
	}
	if config.FirstReviewGoodInterval > 0 {
		params.FirstReviewIntervals[domain.ReviewGradeGood] = config.FirstReviewGoodInterval
	}
	if config.FirstReviewEasyInterval > 0 {
		params.FirstReviewIntervals[domain.ReviewGradeEasy] = config.FirstReviewEasyInterval
	}

	if config.RelearnIntervalDays > 0 {
		params.RelearnIntervalDays = config.RelearnIntervalDays
	}
	if config.AgainReviewMinutes > 0 {
		params.AgainReviewMinutes = config.AgainReviewMinutes
	}
	if config.YoungThresholdDays > 0 {
		params.YoungThresholdDays = config.YoungThresholdDays
	}

	return params
}

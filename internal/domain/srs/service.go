package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/praxislabs/mastery-api/internal/domain"
)

// Common errors
var (
	ErrNilState     = errors.New("flashcard state cannot be nil")
	ErrInvalidGrade = errors.New("invalid review grade")
)

// Preview holds the interval each grade would produce for a card, without
// any state mutation. Used by the review UI to show "what happens if I pick
// X" before the learner commits.
type Preview struct {
	Again string `json:"again"`
	Hard  string `json:"hard"`
	Good  string `json:"good"`
	Easy  string `json:"easy"`
}

// Service defines the interface for SRS scheduling operations.
type Service interface {
	// Grade computes new scheduling state from a review grade. The input
	// state is never modified; a new instance is returned.
	Grade(
		state *domain.UserFlashcardState,
		grade domain.ReviewGrade,
		now time.Time,
	) (*domain.UserFlashcardState, error)

	// PreviewIntervals returns the resulting interval for each of the four
	// grades without mutating state.
	PreviewIntervals(state *domain.UserFlashcardState, now time.Time) (*Preview, error)

	// Maturity classifies the card as new, learning, or mature.
	Maturity(state *domain.UserFlashcardState) Maturity

	// YoungThresholdDays exposes the learning/mature boundary used for
	// queue bucketing.
	YoungThresholdDays() int
}

type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters.
func NewDefaultService() Service {
	return &defaultService{params: NewDefaultParams()}
}

// NewServiceWithParams creates a new SRS service with custom parameters.
func NewServiceWithParams(params *Params) Service {
	return &defaultService{params: params}
}

// Grade implements Service.Grade.
func (s *defaultService) Grade(
	state *domain.UserFlashcardState,
	grade domain.ReviewGrade,
	now time.Time,
) (*domain.UserFlashcardState, error) {
	if state == nil {
		return nil, ErrNilState
	}
	if !domain.IsValidReviewGrade(grade) {
		return nil, ErrInvalidGrade
	}

	return calculateNextState(state, grade, now, s.params), nil
}

// PreviewIntervals implements Service.PreviewIntervals. It runs the same
// calculation as Grade for each grade on copies of the state, so previewing
// any number of times leaves subsequent grading untouched.
func (s *defaultService) PreviewIntervals(
	state *domain.UserFlashcardState,
	now time.Time,
) (*Preview, error) {
	if state == nil {
		return nil, ErrNilState
	}

	format := func(grade domain.ReviewGrade) string {
		next := calculateNextState(state, grade, now, s.params)
		if grade == domain.ReviewGradeAgain && next.IntervalDays == 0 {
			return fmt.Sprintf("%dm", s.params.AgainReviewMinutes)
		}
		return fmt.Sprintf("%dd", next.IntervalDays)
	}

	return &Preview{
		Again: format(domain.ReviewGradeAgain),
		Hard:  format(domain.ReviewGradeHard),
		Good:  format(domain.ReviewGradeGood),
		Easy:  format(domain.ReviewGradeEasy),
	}, nil
}

// Maturity implements Service.Maturity.
func (s *defaultService) Maturity(state *domain.UserFlashcardState) Maturity {
	return ClassifyMaturity(state, s.params)
}

// YoungThresholdDays implements Service.YoungThresholdDays.
func (s *defaultService) YoungThresholdDays() int {
	return s.params.YoungThresholdDays
}

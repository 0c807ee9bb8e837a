package api

import (
	"errors"
	"net/http"

	"github.com/praxislabs/mastery-api/internal/api/middleware"
	"github.com/praxislabs/mastery-api/internal/domain"
	"github.com/praxislabs/mastery-api/internal/service/review"
	"github.com/praxislabs/mastery-api/internal/service/submission"
	"github.com/praxislabs/mastery-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes based on
// the error type, so internal error shapes never leak to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, middleware.ErrInvalidToken),
		errors.Is(err, middleware.ErrExpiredToken):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, submission.ErrNotOwned),
		errors.Is(err, review.ErrCardNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, submission.ErrSubmissionNotFound),
		errors.Is(err, submission.ErrTargetNotFound),
		errors.Is(err, review.ErrCardNotFound),
		errors.Is(err, review.ErrCardStateNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, domain.ErrSubmissionResolved):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, submission.ErrEmptyAnswer),
		errors.Is(err, review.ErrInvalidGrade),
		errors.Is(err, domain.ErrInvalidReviewGrade):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly message for the
// error type without exposing internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, middleware.ErrInvalidToken),
		errors.Is(err, middleware.ErrExpiredToken):
		return "Invalid token"

	case errors.Is(err, submission.ErrNotOwned):
		return "You do not own this submission"

	case errors.Is(err, review.ErrCardNotOwned):
		return "You do not own this card"

	case errors.Is(err, submission.ErrSubmissionNotFound):
		return "Submission not found"

	case errors.Is(err, submission.ErrTargetNotFound):
		return "Lesson or quest not found"

	case errors.Is(err, review.ErrCardNotFound):
		return "Card not found"

	case errors.Is(err, review.ErrCardStateNotFound):
		return "Card state not found"

	case errors.Is(err, domain.ErrSubmissionResolved):
		return "Submission is already resolved"

	case errors.Is(err, submission.ErrEmptyAnswer):
		return "Defense answer cannot be empty"

	case errors.Is(err, review.ErrInvalidGrade),
		errors.Is(err, domain.ErrInvalidReviewGrade):
		return "Invalid review grade"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	default:
		return "An unexpected error occurred"
	}
}

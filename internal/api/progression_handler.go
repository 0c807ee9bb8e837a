package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/api/shared"
	"github.com/praxislabs/mastery-api/internal/domain"
	"github.com/praxislabs/mastery-api/internal/store"
)

// ProgressionHandler serves read-only views of a user's XP, level, streak,
// and per-part progress. All mutation goes through the submission engine.
type ProgressionHandler struct {
	progressions store.ProgressionStore
	logger       *slog.Logger
}

// NewProgressionHandler creates a new ProgressionHandler.
func NewProgressionHandler(progressions store.ProgressionStore, log *slog.Logger) *ProgressionHandler {
	if progressions == nil {
		panic("progressions cannot be nil for ProgressionHandler")
	}
	if log == nil {
		panic("logger cannot be nil for ProgressionHandler")
	}

	return &ProgressionHandler{
		progressions: progressions,
		logger:       log.With(slog.String("component", "progression_handler")),
	}
}

// GetAggregate handles GET /progression requests. A user with no history
// gets the zeroed level-1 aggregate rather than a 404.
func (h *ProgressionHandler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	agg, err := h.progressions.GetAggregate(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrAggregateNotFound) {
			agg, err = domain.NewUserAggregate(userID)
		}
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
			return
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, agg)
}

// GetPartRecord handles GET /progression/parts/{partID} requests.
func (h *ProgressionHandler) GetPartRecord(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	partID, err := uuid.Parse(chi.URLParam(r, "partID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid part ID")
		return
	}

	rec, err := h.progressions.GetRecord(r.Context(), userID, partID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, rec)
}

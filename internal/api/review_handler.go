package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/api/shared"
	"github.com/praxislabs/mastery-api/internal/domain"
	"github.com/praxislabs/mastery-api/internal/platform/logger"
	"github.com/praxislabs/mastery-api/internal/service/review"
)

// GradeCardRequest represents the request body for grading a card review.
// ResponseMs is the learner's answer time; it is recorded for analytics and
// does not influence scheduling.
type GradeCardRequest struct {
	Grade      string `json:"grade" validate:"required,oneof=again hard good easy"`
	ResponseMs int    `json:"response_ms,omitempty" validate:"gte=0"`
}

// CreateCardRequest represents the request body for authoring a flashcard.
type CreateCardRequest struct {
	Front     string            `json:"front"      validate:"required"`
	Back      string            `json:"back"       validate:"required"`
	Type      string            `json:"type"       validate:"required"`
	Hint      string            `json:"hint,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	SourceRef string            `json:"source_ref,omitempty"`
}

// CreateCardsBulkRequest represents the request body for seeding a deck of
// flashcards in one call.
type CreateCardsBulkRequest struct {
	Cards []CreateCardRequest `json:"cards" validate:"required,min=1,max=100,dive"`
}

// ReviewHandler handles flashcard review HTTP requests.
type ReviewHandler struct {
	service review.Service
	logger  *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(service review.Service, log *slog.Logger) *ReviewHandler {
	if service == nil {
		panic("service cannot be nil for ReviewHandler")
	}
	if log == nil {
		panic("logger cannot be nil for ReviewHandler")
	}

	return &ReviewHandler{
		service: service,
		logger:  log.With(slog.String("component", "review_handler")),
	}
}

// GetQueue handles GET /reviews/queue requests.
func (h *ReviewHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	queue, err := h.service.GetQueue(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, queue)
}

// GradeCard handles POST /cards/{id}/review requests.
func (h *ReviewHandler) GradeCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requestUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	cardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid card ID")
		return
	}

	var req GradeCardRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid review grade")
		return
	}

	state, err := h.service.GradeCard(r.Context(), userID, cardID, domain.ReviewGrade(req.Grade))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("card review graded",
		slog.String("user_id", userID.String()),
		slog.String("card_id", cardID.String()),
		slog.String("grade", req.Grade),
		slog.Int("response_ms", req.ResponseMs))
	shared.RespondWithJSON(w, r, http.StatusOK, state)
}

// PreviewCard handles GET /cards/{id}/preview requests.
func (h *ReviewHandler) PreviewCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	cardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid card ID")
		return
	}

	preview, err := h.service.PreviewCard(r.Context(), userID, cardID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, preview)
}

// CreateCard handles POST /cards requests.
func (h *ReviewHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requestUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateCardRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Front, back, and type are required")
		return
	}

	card, err := h.service.CreateCard(r.Context(), review.CreateCardRequest{
		UserID:    userID,
		Front:     req.Front,
		Back:      req.Back,
		Type:      domain.CardType(req.Type),
		Hint:      req.Hint,
		Tags:      req.Tags,
		SourceRef: req.SourceRef,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("card authored",
		slog.String("user_id", userID.String()),
		slog.String("card_id", card.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, card)
}

// CreateCardsBulk handles POST /cards/bulk requests, the deck-seeding path.
func (h *ReviewHandler) CreateCardsBulk(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requestUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateCardsBulkRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Between 1 and 100 cards are required, each with front, back, and type")
		return
	}

	reqs := make([]review.CreateCardRequest, 0, len(req.Cards))
	for _, c := range req.Cards {
		reqs = append(reqs, review.CreateCardRequest{
			UserID:    userID,
			Front:     c.Front,
			Back:      c.Back,
			Type:      domain.CardType(c.Type),
			Hint:      c.Hint,
			Tags:      c.Tags,
			SourceRef: c.SourceRef,
		})
	}

	cards, err := h.service.CreateCards(r.Context(), reqs)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("deck seeded",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(cards)))
	shared.RespondWithJSON(w, r, http.StatusCreated, cards)
}

// BrowseCards handles GET /cards requests.
func (h *ReviewHandler) BrowseCards(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	cards, err := h.service.BrowseCards(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cards)
}

// SuspendCard handles POST /cards/{id}/suspend requests.
func (h *ReviewHandler) SuspendCard(w http.ResponseWriter, r *http.Request) {
	h.setSuspended(w, r, true)
}

// UnsuspendCard handles POST /cards/{id}/unsuspend requests.
func (h *ReviewHandler) UnsuspendCard(w http.ResponseWriter, r *http.Request) {
	h.setSuspended(w, r, false)
}

func (h *ReviewHandler) setSuspended(w http.ResponseWriter, r *http.Request, suspended bool) {
	userID, ok := requestUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	cardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid card ID")
		return
	}

	if suspended {
		err = h.service.SuspendCard(r.Context(), userID, cardID)
	} else {
		err = h.service.UnsuspendCard(r.Context(), userID, cardID)
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetStats handles GET /reviews/stats requests.
func (h *ReviewHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	stats, err := h.service.GetStats(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// ListDueLessonReviews handles GET /reviews/lessons requests.
func (h *ReviewHandler) ListDueLessonReviews(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	items, err := h.service.ListDueLessonReviews(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	if len(items) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, items)
}

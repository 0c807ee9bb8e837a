// Package api provides HTTP handlers for the API.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/api/middleware"
	"github.com/praxislabs/mastery-api/internal/api/shared"
	"github.com/praxislabs/mastery-api/internal/platform/logger"
	"github.com/praxislabs/mastery-api/internal/service/submission"
)

// SubmitProofRequest represents the request body for submitting a proof.
// Exactly one of LessonID/QuestID is required, and at least one of
// ProofText/UploadRef. ManualPassOverride is honored only for tokens
// carrying the admin role.
type SubmitProofRequest struct {
	LessonID           string `json:"lesson_id,omitempty"`
	QuestID            string `json:"quest_id,omitempty"`
	ProofText          string `json:"proof_text,omitempty"`
	UploadRef          string `json:"upload_ref,omitempty"`
	CodeSnapshot       string `json:"code_snapshot,omitempty"`
	ManualPassOverride bool   `json:"manual_pass_override,omitempty"`
}

// ContinueDefenseRequest represents the request body for answering a defense.
type ContinueDefenseRequest struct {
	AnswerText   string `json:"answer_text" validate:"required"`
	CodeSnapshot string `json:"code_snapshot,omitempty"`
}

// SubmissionHandler handles submission-related HTTP requests.
type SubmissionHandler struct {
	service submission.Service
	logger  *slog.Logger
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(service submission.Service, log *slog.Logger) *SubmissionHandler {
	if service == nil {
		panic("service cannot be nil for SubmissionHandler")
	}
	if log == nil {
		panic("logger cannot be nil for SubmissionHandler")
	}

	return &SubmissionHandler{
		service: service,
		logger:  log.With(slog.String("component", "submission_handler")),
	}
}

// SubmitProof handles POST /submissions requests.
func (h *SubmissionHandler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requestUserID(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req SubmitProofRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	lessonID, ok := optionalUUID(req.LessonID)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid lesson ID")
		return
	}
	questID, ok := optionalUUID(req.QuestID)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid quest ID")
		return
	}

	// The override bypasses the proof validator, so it is reserved for
	// tokens carrying the admin role.
	if req.ManualPassOverride && middleware.GetUserRole(r) != middleware.RoleAdmin {
		log.Warn("manual pass override rejected for non-admin caller",
			slog.String("user_id", userID.String()))
		shared.RespondWithError(w, r, http.StatusForbidden, "Manual pass override requires an admin role")
		return
	}

	resp, err := h.service.SubmitProof(r.Context(), submission.SubmitProofRequest{
		UserID:             userID,
		LessonID:           lessonID,
		QuestID:            questID,
		ProofText:          req.ProofText,
		UploadRef:          req.UploadRef,
		CodeSnapshot:       req.CodeSnapshot,
		ManualPassOverride: req.ManualPassOverride,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("proof submitted",
		slog.String("user_id", userID.String()),
		slog.String("submission_id", resp.SubmissionID.String()),
		slog.String("status", string(resp.Status)))
	shared.RespondWithJSON(w, r, http.StatusCreated, resp)
}

// ContinueDefense handles POST /submissions/{id}/defense requests.
func (h *SubmissionHandler) ContinueDefense(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requestUserID(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	submissionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid submission ID")
		return
	}

	var req ContinueDefenseRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	resp, err := h.service.ContinueDefense(r.Context(), submission.ContinueDefenseRequest{
		UserID:       userID,
		SubmissionID: submissionID,
		AnswerText:   req.AnswerText,
		CodeSnapshot: req.CodeSnapshot,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("defense answered",
		slog.String("user_id", userID.String()),
		slog.String("submission_id", submissionID.String()),
		slog.String("status", string(resp.Status)))
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetSubmission handles GET /submissions/{id} requests.
func (h *SubmissionHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requestUserID(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	submissionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid submission ID")
		return
	}

	sub, err := h.service.GetSubmission(r.Context(), userID, submissionID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, sub)
}

// requestUserID extracts the authenticated user ID set by the auth middleware.
func requestUserID(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

// optionalUUID parses an optional ID field. An empty string is valid and
// yields nil.
func optionalUUID(s string) (*uuid.UUID, bool) {
	if s == "" {
		return nil, true
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, false
	}
	return &id, true
}

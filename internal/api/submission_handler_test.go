package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxislabs/mastery-api/internal/api/middleware"
	"github.com/praxislabs/mastery-api/internal/api/shared"
	"github.com/praxislabs/mastery-api/internal/domain"
	"github.com/praxislabs/mastery-api/internal/service/submission"
)

// stubSubmissionService scripts the service layer so the handler's HTTP
// behavior can be tested in isolation.
type stubSubmissionService struct {
	submitResp   *submission.SubmitProofResponse
	submitErr    error
	continueResp *submission.ContinueDefenseResponse
	continueErr  error
	sub          *domain.Submission
	getErr       error
	lastSubmit   submission.SubmitProofRequest
}

func (s *stubSubmissionService) SubmitProof(_ context.Context, req submission.SubmitProofRequest) (*submission.SubmitProofResponse, error) {
	s.lastSubmit = req
	return s.submitResp, s.submitErr
}

func (s *stubSubmissionService) ContinueDefense(_ context.Context, _ submission.ContinueDefenseRequest) (*submission.ContinueDefenseResponse, error) {
	return s.continueResp, s.continueErr
}

func (s *stubSubmissionService) GetSubmission(_ context.Context, _, _ uuid.UUID) (*domain.Submission, error) {
	return s.sub, s.getErr
}

var _ submission.Service = (*stubSubmissionService)(nil)

func submissionRouter(stub *stubSubmissionService) http.Handler {
	handler := NewSubmissionHandler(stub, slog.Default())
	r := chi.NewRouter()
	r.Post("/submissions", handler.SubmitProof)
	r.Get("/submissions/{id}", handler.GetSubmission)
	r.Post("/submissions/{id}/defense", handler.ContinueDefense)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	return doJSONAs(t, h, method, path, userID, "", body)
}

func doJSONAs(t *testing.T, h http.Handler, method, path string, userID uuid.UUID, role string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != uuid.Nil {
		req = req.WithContext(context.WithValue(req.Context(), shared.UserIDContextKey, userID))
	}
	if role != "" {
		req = req.WithContext(context.WithValue(req.Context(), shared.UserRoleContextKey, role))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSubmitProofHandler_Created(t *testing.T) {
	t.Parallel()

	subID := uuid.New()
	stub := &stubSubmissionService{
		submitResp: &submission.SubmitProofResponse{
			SubmissionID: subID,
			Status:       domain.SubmissionStatusPending,
			Message:      "Why does your retry loop terminate?",
		},
	}
	router := submissionRouter(stub)

	lessonID := uuid.New()
	userID := uuid.New()
	rec := doJSON(t, router, http.MethodPost, "/submissions", userID, SubmitProofRequest{
		LessonID:  lessonID.String(),
		ProofText: "output: 42",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp submission.SubmitProofResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, subID, resp.SubmissionID)
	assert.Equal(t, domain.SubmissionStatusPending, resp.Status)

	require.NotNil(t, stub.lastSubmit.LessonID)
	assert.Equal(t, lessonID, *stub.lastSubmit.LessonID)
	assert.Equal(t, userID, stub.lastSubmit.UserID)
}

func TestSubmitProofHandler_OverrideRequiresAdminRole(t *testing.T) {
	t.Parallel()

	stub := &stubSubmissionService{}
	router := submissionRouter(stub)

	rec := doJSON(t, router, http.MethodPost, "/submissions", uuid.New(), SubmitProofRequest{
		LessonID:           uuid.New().String(),
		ProofText:          "mentor approved in person",
		ManualPassOverride: true,
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, stub.lastSubmit.ManualPassOverride,
		"a rejected override must never reach the service")
	assert.Equal(t, uuid.Nil, stub.lastSubmit.UserID, "the service must not be called at all")
}

func TestSubmitProofHandler_AdminOverrideIsForwarded(t *testing.T) {
	t.Parallel()

	stub := &stubSubmissionService{
		submitResp: &submission.SubmitProofResponse{
			SubmissionID: uuid.New(),
			Status:       domain.SubmissionStatusPending,
		},
	}
	router := submissionRouter(stub)

	rec := doJSONAs(t, router, http.MethodPost, "/submissions", uuid.New(), middleware.RoleAdmin, SubmitProofRequest{
		LessonID:           uuid.New().String(),
		ProofText:          "mentor approved in person",
		ManualPassOverride: true,
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, stub.lastSubmit.ManualPassOverride)
}

func TestSubmitProofHandler_MissingUser(t *testing.T) {
	t.Parallel()

	router := submissionRouter(&stubSubmissionService{})
	rec := doJSON(t, router, http.MethodPost, "/submissions", uuid.Nil, SubmitProofRequest{ProofText: "x"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitProofHandler_MalformedLessonID(t *testing.T) {
	t.Parallel()

	router := submissionRouter(&stubSubmissionService{})
	rec := doJSON(t, router, http.MethodPost, "/submissions", uuid.New(), SubmitProofRequest{
		LessonID:  "not-a-uuid",
		ProofText: "output: 42",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitProofHandler_ServiceErrorIsSanitized(t *testing.T) {
	t.Parallel()

	stub := &stubSubmissionService{submitErr: submission.ErrTargetNotFound}
	router := submissionRouter(stub)

	rec := doJSON(t, router, http.MethodPost, "/submissions", uuid.New(), SubmitProofRequest{
		LessonID:  uuid.New().String(),
		ProofText: "output: 42",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var errResp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "Lesson or quest not found", errResp.Error)
}

func TestContinueDefenseHandler_OK(t *testing.T) {
	t.Parallel()

	stub := &stubSubmissionService{
		continueResp: &submission.ContinueDefenseResponse{
			Status:    domain.SubmissionStatusPassed,
			Verdict:   domain.DefenseVerdictPass,
			XPAwarded: 100,
		},
	}
	router := submissionRouter(stub)

	rec := doJSON(t, router, http.MethodPost, "/submissions/"+uuid.New().String()+"/defense", uuid.New(), ContinueDefenseRequest{
		AnswerText: "Because the retry count is bounded.",
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp submission.ContinueDefenseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.DefenseVerdictPass, resp.Verdict)
	assert.Equal(t, 100, resp.XPAwarded)
}

func TestContinueDefenseHandler_BadSubmissionID(t *testing.T) {
	t.Parallel()

	router := submissionRouter(&stubSubmissionService{})
	rec := doJSON(t, router, http.MethodPost, "/submissions/garbage/defense", uuid.New(), ContinueDefenseRequest{
		AnswerText: "anything",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContinueDefenseHandler_EmptyAnswerMapsToBadRequest(t *testing.T) {
	t.Parallel()

	stub := &stubSubmissionService{continueErr: submission.ErrEmptyAnswer}
	router := submissionRouter(stub)

	rec := doJSON(t, router, http.MethodPost, "/submissions/"+uuid.New().String()+"/defense", uuid.New(), ContinueDefenseRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSubmissionHandler_NotOwnedIsForbidden(t *testing.T) {
	t.Parallel()

	stub := &stubSubmissionService{getErr: submission.ErrNotOwned}
	router := submissionRouter(stub)

	rec := doJSON(t, router, http.MethodGet, "/submissions/"+uuid.New().String(), uuid.New(), nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

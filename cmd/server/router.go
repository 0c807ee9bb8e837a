package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/praxislabs/mastery-api/internal/api"
	"github.com/praxislabs/mastery-api/internal/api/middleware"
	"github.com/praxislabs/mastery-api/internal/api/shared"
	"github.com/praxislabs/mastery-api/internal/config"
	"github.com/praxislabs/mastery-api/internal/service/review"
	"github.com/praxislabs/mastery-api/internal/service/submission"
	"github.com/praxislabs/mastery-api/internal/store"
)

// newRouter wires all HTTP routes. Everything under /api requires a valid
// bearer token; /health is open for load balancer probes.
func newRouter(
	cfg *config.Config,
	submissionService submission.Service,
	reviewService review.Service,
	progressions store.ProgressionStore,
	db *sql.DB,
	log *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.TraceMiddleware)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", healthHandler(db))

	submissionHandler := api.NewSubmissionHandler(submissionService, log)
	reviewHandler := api.NewReviewHandler(reviewService, log)
	progressionHandler := api.NewProgressionHandler(progressions, log)
	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Route("/submissions", func(r chi.Router) {
			r.Post("/", submissionHandler.SubmitProof)
			r.Get("/{id}", submissionHandler.GetSubmission)
			r.Post("/{id}/defense", submissionHandler.ContinueDefense)
		})

		r.Route("/cards", func(r chi.Router) {
			r.Post("/", reviewHandler.CreateCard)
			r.Post("/bulk", reviewHandler.CreateCardsBulk)
			r.Get("/", reviewHandler.BrowseCards)
			r.Post("/{id}/review", reviewHandler.GradeCard)
			r.Get("/{id}/preview", reviewHandler.PreviewCard)
			r.Post("/{id}/suspend", reviewHandler.SuspendCard)
			r.Post("/{id}/unsuspend", reviewHandler.UnsuspendCard)
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/queue", reviewHandler.GetQueue)
			r.Get("/stats", reviewHandler.GetStats)
			r.Get("/lessons", reviewHandler.ListDueLessonReviews)
		})

		r.Route("/progression", func(r chi.Router) {
			r.Get("/", progressionHandler.GetAggregate)
			r.Get("/parts/{partID}", progressionHandler.GetPartRecord)
		})
	})

	return r
}

// healthHandler reports liveness and database reachability.
func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			shared.RespondWithJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{
			"status": "ok",
		})
	}
}

package httpapi

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the chi router exposing the Controller's command surface.
// limiter may be nil to disable rate limiting.
func NewRouter(controller Controller, limiter CommandLimiter, logger *slog.Logger) chi.Router {
	rest := NewREST(controller, logger)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger(logger))

	r.Get("/healthz", rest.Healthz)
	r.Get("/readyz", rest.Readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/scheduler", func(r chi.Router) {
			r.Post("/start", rest.Start)
			r.Post("/pause", rest.Pause)
			r.Post("/resume", rest.Resume)
			r.With(RateLimit(limiter, "recover")).Post("/recover", rest.Recover)
		})
		r.Get("/occurrences", rest.ListOccurrences)
		r.Route("/occurrences/{id}", func(r chi.Router) {
			r.With(RateLimit(limiter, "mark_done")).Post("/done", rest.MarkDone)
			r.With(RateLimit(limiter, "retry_occurrence")).Post("/retry", rest.RetryOccurrence)
		})
	})

	return r
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the API on r. Everything except /health and /metrics goes
// through auth. mcpHandler and metrics are skipped when nil.
func (s *Server) Routes(r chi.Router, auth func(http.Handler) http.Handler, mcpHandler, metrics http.Handler) {
	r.Get("/health", s.HandleHealth)
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Route("/api", func(r chi.Router) {
			r.Post("/analyze/text", s.HandleAnalyzeText)
			r.Post("/analyze/photo", s.HandleAnalyzePhoto)
			r.Post("/analyze/audio", s.HandleAnalyzeAudio)
			r.Post("/analyze/jobs", s.HandleCreateJob)
			r.Get("/analyze/jobs/{id}", s.HandleGetJob)

			r.Get("/providers", s.HandleListProviders)
			r.Put("/providers/default", s.HandleSetDefaultProvider)

			r.Get("/meals", s.HandleListMeals)
		})

		if mcpHandler != nil {
			r.Handle("/mcp", mcpHandler)
		}
	})
}

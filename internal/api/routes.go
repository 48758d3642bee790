package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Routes(m *Middleware, corsOrigins []string, rateLimitRPM int) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(m.Compress)
	r.Use(m.Timeout(15 * time.Second))
	r.Use(middleware.Heartbeat("/ping"))

	// CORS and rate limiting - configured from main
	r.Use(m.CORS(corsOrigins))
	r.Use(m.RateLimit(rateLimitRPM))

	// Health endpoints
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	// v1 API routes
	r.Route("/v1", func(r chi.Router) {
		// Public content reads
		r.Route("/content", func(r chi.Router) {
			r.Get("/{type}", h.ListContent)
			r.Get("/{type}/{slug}", h.GetContent)
		})

		// Editorial mutations
		r.Route("/admin", func(r chi.Router) {
			r.Route("/content/{type}/{id}", func(r chi.Router) {
				r.Put("/relationships", h.SyncRelationships)
				r.Delete("/", h.DeleteContent)
				r.Post("/restore", h.RestoreContent)
			})

			r.Route("/cache", func(r chi.Router) {
				r.Get("/stats", h.CacheStats)
				r.Delete("/", h.InvalidateCache)
			})
		})
	})

	return r
}

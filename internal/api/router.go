package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health check (no auth required)
	r.Get("/api/v1/health", s.handleHealth)

	// OTA endpoints for the boards themselves
	r.Route("/device", func(r chi.Router) {
		// The handshake requires the shared firmware credentials; the
		// download is public and gated by the handshake token instead.
		r.With(s.deviceAuthMiddleware).Post("/authenticate/{staMac}", s.handleAuthenticate)
		r.Get("/{staMac}/download", s.handleDownload)
	})

	// Management API
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.adminAuthMiddleware)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)

			r.Route("/{staMac}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Put("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDeleteDevice)

				r.Route("/versions", func(r chi.Router) {
					r.Get("/", s.handleListVersions)
					r.Post("/", s.handleCreateVersion)

					r.Route("/{version}", func(r chi.Router) {
						r.Get("/", s.handleGetVersion)
						r.Put("/", s.handleUpdateVersion)
						r.Delete("/", s.handleDeleteVersion)
					})
				})
			})
		})
	})

	return r
}

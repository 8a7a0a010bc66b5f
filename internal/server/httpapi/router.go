package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/secureshare/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the handler into the route tree. Everything under
// /api/files, /api/shared, /api/otp, and /api/audit requires a valid
// access token.
func NewRouter(h *Handler, jwtSecret []byte, logger logging.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/refresh", h.refresh)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(jwtSecret))

			r.Route("/files", func(r chi.Router) {
				r.Post("/", h.upload)
				r.Get("/", h.listFiles)
				r.Get("/{id}/download", h.download)
				r.Post("/{id}/export", h.export)
				r.Post("/{id}/share", h.share)
				r.Get("/{id}/recipients", h.recipients)
				r.Delete("/{id}", h.deleteFile)
			})

			r.Route("/shared", func(r chi.Router) {
				r.Get("/by-me", h.sharedByMe)
				r.Get("/to-me", h.sharedToMe)
			})

			r.Post("/otp", h.sendOtp)
			r.Get("/audit", h.auditTrail)
		})
	})

	return r
}

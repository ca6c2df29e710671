/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for operator tooling

ROUTE GROUPS:
  /api/credits/*   Credit and per-credit collection operations
  /api/clients/*   Payment document distribution
  /api/balance     Portfolio-wide balance
  /api/admin/*     Rounding reconciliation

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/credits", func(r chi.Router) {
			r.Get("/", h.ListCredits)
			r.Post("/", h.CreateCredit)
			r.Get("/{id}", h.GetCredit)
			r.Get("/{id}/installments", h.GetInstallments)
			r.Get("/{id}/balance", h.GetCreditBalance)
			r.Post("/{id}/collections", h.CollectCredit)
		})

		r.Route("/clients", func(r chi.Router) {
			r.Post("/{id}/collections", h.CollectClient)
		})

		r.Get("/balance", h.GetBalance)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/rounding", h.TriggerRounding)
		})
	})

	return r
}

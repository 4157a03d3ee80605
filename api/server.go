/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend
  5. Auth:       JWT verification on everything except /login

ROUTE GROUPS:
  /login                 Token issuance (public)
  /calculate-mortgage    External calculator proxy (JWT)
  /api/clients/*         Client lookups, recommendations, statistics (JWT)

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
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Public routes
	r.Post("/login", h.Login)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.Middleware)

		r.Post("/calculate-mortgage", h.CalculateMortgage)

		r.Route("/api/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Get("/sample", h.SampleClients)
			r.Post("/cache/invalidate", h.InvalidateCache)

			// Statistics routes are registered before /{id} so the literal
			// segments win over the wildcard.
			r.Get("/segments", h.GetSegmentCounts)
			r.Get("/balances", h.GetAverageBalances)
			r.Get("/transactions", h.GetTransactionStatistics)
			r.Get("/spending", h.GetSpending)
			r.Get("/digital-engagement", h.GetDigitalEngagement)

			r.Get("/{id}", h.GetClient)
			r.Get("/{id}/products", h.GetClientProducts)
			r.Get("/{id}/offers", h.GetClientOffers)
		})
	})

	return r
}

/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for POS frontends

ROUTE GROUPS (under /api/v1/pos):
  /customers/*   Customer directory + addresses + per-customer points
  /loyalty/*     Program-wide statistics and the manual sweep
  /sales         Completed-sale notifications
  /utils/*       Static label maps for frontends

SECURITY NOTE:
  No authentication middleware currently. The module expects to sit
  behind the POS gateway, which authenticates terminals.

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

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Route("/api/v1/pos", func(r chi.Router) {
		// Customer routes
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.CreateCustomer)
			r.Post("/search", h.SearchCustomers)
			r.Get("/statistics", h.CustomerStatistics)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetCustomer)
				r.Put("/", h.UpdateCustomer)
				r.Delete("/", h.DeleteCustomer)
				r.Post("/restore", h.RestoreCustomer)
				r.Post("/activate", h.ActivateCustomer)
				r.Post("/deactivate", h.DeactivateCustomer)

				// Address routes
				r.Route("/addresses", func(r chi.Router) {
					r.Get("/", h.ListAddresses)
					r.Post("/", h.CreateAddress)
					r.Get("/default-billing", h.DefaultBillingAddress)
					r.Get("/default-shipping", h.DefaultShippingAddress)
					r.Get("/{addressID}", h.GetAddress)
					r.Put("/{addressID}", h.UpdateAddress)
					r.Delete("/{addressID}", h.DeleteAddress)
				})

				// Points routes
				r.Route("/points", func(r chi.Router) {
					r.Get("/", h.PointsSummary)
					r.Get("/history", h.PointsHistory)
					r.Get("/consistency", h.PointsConsistency)
					r.Post("/award", h.AwardPoints)
					r.Post("/redeem", h.RedeemPoints)
					r.Post("/adjust", h.AdjustPoints)
				})
			})
		})

		// Loyalty program routes
		r.Route("/loyalty", func(r chi.Router) {
			r.Get("/statistics", h.LoyaltyStatistics)
			r.Post("/expire-run", h.RunExpiration)
		})

		// Sale routes
		r.Post("/sales", h.RecordSale)

		// Utility routes (static maps for frontends)
		r.Route("/utils", func(r chi.Router) {
			r.Get("/point-types", h.PointTypes)
			r.Get("/address-types", h.AddressTypes)
			r.Get("/customer-groups", h.CustomerGroups)
		})
	})

	return r
}

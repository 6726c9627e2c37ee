package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all HTTP routes.
func SetupRoutes(h *Handlers, hc *HealthChecker) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS for the practice dashboard
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health and metrics (no auth)
	r.Get("/health", hc.HandleHealth)
	r.Get("/health/ready", hc.HandleReadiness)
	r.Handle("/metrics", promhttp.Handler())

	// Provider webhooks (called by Twilio, not the dashboard)
	r.Post("/webhooks/sms", h.InboundSMS)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/campaign-types", h.ListCampaignTypes)

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.ListCampaigns)
			r.Post("/", h.CreateCampaign)

			r.Route("/{campaignID}", func(r chi.Router) {
				r.Get("/", h.GetCampaign)
				r.Post("/activate", h.ActivateCampaign)
				r.Post("/pause", h.PauseCampaign)
				r.Post("/archive", h.ArchiveCampaign)
				r.Post("/run", h.RunCampaign)
				r.Post("/enroll", h.EnrollCustomers)
				r.Get("/runs", h.ListCampaignRuns)
			})
		})

		r.Post("/segments/preview", h.PreviewSegment)

		r.Post("/customers/{customerID}/opt-out", h.OptOutCustomer)

		r.Get("/notifications", h.ListNotifications)
	})

	return r
}

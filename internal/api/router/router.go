// Package router assembles the HTTP surface: conversation endpoints, web
// lead capture, health and metrics.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/inmobilia/inmobilia-ai-platform/internal/conversation"
	httpmiddleware "github.com/inmobilia/inmobilia-ai-platform/internal/http/middleware"
	"github.com/inmobilia/inmobilia-ai-platform/internal/leads"
	"github.com/inmobilia/inmobilia-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	LeadsHandler        *leads.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// Per-IP rate limit for the public endpoints. Zero disables limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(public chi.Router) {
		if cfg.RateLimitPerSecond > 0 {
			public.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
		}

		if cfg.ConversationHandler != nil {
			cfg.ConversationHandler.Routes(public)
		}

		if cfg.LeadsHandler != nil {
			public.Route("/leads", func(r chi.Router) {
				r.Post("/web", cfg.LeadsHandler.CreateWebLead)
				r.Get("/records", cfg.LeadsHandler.ListLeadRecords)
				r.Get("/{leadID}/status", cfg.LeadsHandler.GetLeadStatus)
				r.Get("/{leadID}/record", cfg.LeadsHandler.GetLeadRecord)
			})
		}
	})

	return r
}

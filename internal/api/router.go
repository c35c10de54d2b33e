package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/family-rules-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Devices authenticate with their own credentials, not a JWT.
		r.Post("/devices/report", s.handleDeviceReport)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Read-only administration
		r.Group(func(r chi.Router) {
			r.Use(s.requireRole(auth.RoleViewer))

			r.Post("/auth/ws-ticket", s.handleWSTicket)
			r.Get("/devices/{id}/status", s.handleDeviceStatus)
			r.Get("/webhooks/queue", s.handleWebhookQueue)
			r.Get("/audit", s.handleListAuditLogs)
			r.Get("/metrics", s.handleMetrics)
		})

		// Override changes
		r.Group(func(r chi.Router) {
			r.Use(s.requireRole(auth.RoleAdmin))

			r.Put("/devices/{id}/override", s.handleSetOverride)
			r.Delete("/devices/{id}/override", s.handleClearOverride)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

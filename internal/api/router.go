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
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check and login (no auth required)
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)

		// Device roster reads are open to the local network; hidden
		// devices only show on the per-id route.
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Get("/history", s.handleDeviceHistory)
				r.With(s.authMiddleware).Put("/", s.handleUpdateDevice)
			})
		})

		r.Get("/userinfo", s.handleGetUserInfo)

		// Mutating routes require the shared secret or a JWT.
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/control", s.handleControl)
			r.Post("/userinfo", s.handleSetUserInfo)
		})

		// WebSocket (auth via token query parameter, validated in handler)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.engine.Snapshot()

	telemetryUp := false
	if s.history != nil {
		telemetryUp = s.history.IsConnected()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"devices":   len(snapshot.Devices),
		"telemetry": telemetryUp,
		"clients":   s.hub.ClientCount(),
	})
}

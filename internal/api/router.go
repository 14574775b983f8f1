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
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// WebSocket upgrade. Browsers cannot set headers on WS connections,
		// so the token arrives as a query parameter and is validated in the
		// handler instead of the auth middleware.
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Show endpoints
			r.Route("/shows", func(r chi.Router) {
				r.Get("/", s.handleListShows)
				r.With(s.requireManage).Post("/", s.handleCreateShow)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetShow)

					// Read models (any authenticated role)
					r.Get("/cue-sheet", s.handleCueSheet)
					r.Get("/live", s.handleLiveStatus)
					r.Get("/log", s.handleShowLog)

					// Cue management
					r.Get("/cues", s.handleListCues)
					r.With(s.requireManage).Post("/cues", s.handleCreateCue)

					// Show lifecycle (stage manager only)
					r.Group(func(r chi.Router) {
						r.Use(s.requireManage)
						r.Post("/start", s.handleStartShow)
						r.Post("/hold", s.handleHoldShow)
						r.Post("/resume", s.handleResumeShow)
						r.Post("/end", s.handleEndShow)
						r.Post("/reorder", s.handleReorderCues)
					})

					// Cue execution (operator or stage manager)
					r.Group(func(r chi.Router) {
						r.Use(s.requireControl)
						r.Post("/notes", s.handleAddNote)
						r.Route("/cues/{cueID}", func(r chi.Router) {
							r.Post("/go", s.handleGoCue)
							r.Post("/standby", s.handleStandbyCue)
							r.Post("/skip", s.handleSkipCue)
						})
					})
				})
			})

			// Cue edits addressed by cue ID (stage manager only)
			r.Route("/cues/{cueID}", func(r chi.Router) {
				r.Use(s.requireManage)
				r.Patch("/", s.handleUpdateCue)
				r.Delete("/", s.handleDeleteCue)
			})
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

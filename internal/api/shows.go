package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/showcall/showcall-core/internal/show"
)

// createShowRequest is the payload for POST /shows.
type createShowRequest struct {
	Name string `json:"name"`
}

// handleCreateShow creates a new show in the not_started state.
func (s *Server) handleCreateShow(w http.ResponseWriter, r *http.Request) {
	var req createShowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := show.ValidateShowName(req.Name); err != nil {
		writeDomainError(w, err)
		return
	}

	now := time.Now().UTC()
	sh := &show.Show{
		ID:        "show-" + uuid.NewString()[:8],
		Name:      req.Name,
		Status:    show.StatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateShow(r.Context(), sh); err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.Info("show created", "show_id", sh.ID, "name", sh.Name, "actor", actorFrom(r.Context()))
	writeJSON(w, http.StatusCreated, sh)
}

// handleListShows returns all shows.
func (s *Server) handleListShows(w http.ResponseWriter, r *http.Request) {
	shows, err := s.repo.ListShows(r.Context())
	if err != nil {
		s.logger.Error("listing shows", "error", err)
		writeInternalError(w, "failed to list shows")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"shows": shows,
		"count": len(shows),
	})
}

// handleGetShow returns a single show by ID.
func (s *Server) handleGetShow(w http.ResponseWriter, r *http.Request) {
	sh, err := s.repo.GetShow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/showcall/showcall-core/internal/session"
	"github.com/showcall/showcall-core/internal/show"
)

// handleCreateCue adds a cue to a show's running order.
func (s *Server) handleCreateCue(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "id")

	var spec show.CueSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.submit(w, r, showID, session.CreateCue{
		Spec:  spec,
		Actor: actorFrom(r.Context()),
	})
	if err != nil {
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// handleListCues returns a show's cues in running order, optionally filtered
// by department.
func (s *Server) handleListCues(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "id")

	if _, err := s.repo.GetShow(r.Context(), showID); err != nil {
		writeDomainError(w, err)
		return
	}

	cues, err := s.repo.ListCues(r.Context(), showID)
	if err != nil {
		s.logger.Error("listing cues", "show_id", showID, "error", err)
		writeInternalError(w, "failed to list cues")
		return
	}

	if dept := r.URL.Query().Get("department"); dept != "" {
		filtered := cues[:0]
		for _, c := range cues {
			if c.Department == dept {
				filtered = append(filtered, c)
			}
		}
		cues = filtered
	}

	sort.Slice(cues, func(i, j int) bool { return cues[i].SortOrder < cues[j].SortOrder })

	writeJSON(w, http.StatusOK, map[string]any{
		"cues":  cues,
		"count": len(cues),
	})
}

// handleUpdateCue edits a cue's descriptive fields while it is still
// pending or standby.
func (s *Server) handleUpdateCue(w http.ResponseWriter, r *http.Request) {
	cueID := chi.URLParam(r, "cueID")

	var update show.CueUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	cue, err := s.repo.GetCue(r.Context(), cueID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := s.submit(w, r, cue.ShowID, session.UpdateCue{
		CueID:  cueID,
		Update: update,
		Actor:  actorFrom(r.Context()),
	})
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDeleteCue removes a pending cue from a show that has not started.
func (s *Server) handleDeleteCue(w http.ResponseWriter, r *http.Request) {
	cueID := chi.URLParam(r, "cueID")

	cue, err := s.repo.GetCue(r.Context(), cueID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if _, err := s.submit(w, r, cue.ShowID, session.DeleteCue{
		CueID: cueID,
		Actor: actorFrom(r.Context()),
	}); err != nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": cueID})
}

// submit routes a command through the show's session and writes the domain
// error response on failure. The returned error only signals that a response
// has already been written.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, showID string, cmd session.Command) (any, error) {
	sess, err := s.sessions.GetOrCreate(r.Context(), showID)
	if err != nil {
		writeDomainError(w, err)
		return nil, err
	}

	result, err := sess.Submit(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, err)
		return nil, err
	}
	return result, nil
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/showcall/showcall-core/internal/session"
)

// handleStartShow moves a show from not_started to running.
func (s *Server) handleStartShow(w http.ResponseWriter, r *http.Request) {
	result, err := s.submit(w, r, chi.URLParam(r, "id"), session.StartShow{
		Actor: actorFrom(r.Context()),
	})
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// holdRequest is the payload for POST /shows/{id}/hold.
type holdRequest struct {
	Reason string `json:"reason"`
}

// handleHoldShow pauses a running show. A reason is required; it appears on
// every console until the show resumes.
func (s *Server) handleHoldShow(w http.ResponseWriter, r *http.Request) {
	var req holdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.submit(w, r, chi.URLParam(r, "id"), session.HoldShow{
		Reason: req.Reason,
		Actor:  actorFrom(r.Context()),
	})
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleResumeShow returns a held show to running.
func (s *Server) handleResumeShow(w http.ResponseWriter, r *http.Request) {
	result, err := s.submit(w, r, chi.URLParam(r, "id"), session.ResumeShow{
		Actor: actorFrom(r.Context()),
	})
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleEndShow completes a show. Completed is terminal.
func (s *Server) handleEndShow(w http.ResponseWriter, r *http.Request) {
	result, err := s.submit(w, r, chi.URLParam(r, "id"), session.EndShow{
		Actor: actorFrom(r.Context()),
	})
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGoCue fires a cue. Repeated Go on an executed cue returns the same
// result without re-executing.
func (s *Server) handleGoCue(w http.ResponseWriter, r *http.Request) {
	result, err := s.submit(w, r, chi.URLParam(r, "id"), session.Go{
		CueID: chi.URLParam(r, "cueID"),
		Actor: actorFrom(r.Context()),
	})
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleStandbyCue marks a cue as imminent.
func (s *Server) handleStandbyCue(w http.ResponseWriter, r *http.Request) {
	result, err := s.submit(w, r, chi.URLParam(r, "id"), session.Standby{
		CueID: chi.URLParam(r, "cueID"),
		Actor: actorFrom(r.Context()),
	})
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSkipCue marks a cue as skipped without executing it.
func (s *Server) handleSkipCue(w http.ResponseWriter, r *http.Request) {
	result, err := s.submit(w, r, chi.URLParam(r, "id"), session.Skip{
		CueID: chi.URLParam(r, "cueID"),
		Actor: actorFrom(r.Context()),
	})
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// reorderRequest is the payload for POST /shows/{id}/reorder. It must list
// every cue in the show exactly once, in the new running order.
type reorderRequest struct {
	CueIDs []string `json:"cue_ids"`
}

// handleReorderCues replaces the show's full running order atomically.
func (s *Server) handleReorderCues(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.CueIDs) == 0 {
		writeBadRequest(w, "cue_ids is required")
		return
	}

	result, err := s.submit(w, r, chi.URLParam(r, "id"), session.Reorder{
		OrderedCueIDs: req.CueIDs,
		Actor:         actorFrom(r.Context()),
	})
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cues": result})
}

// noteRequest is the payload for POST /shows/{id}/notes.
type noteRequest struct {
	CueID *string `json:"cue_id,omitempty"`
	Text  string  `json:"text"`
}

// handleAddNote appends a free-text note to the show log.
func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Text == "" {
		writeBadRequest(w, "text is required")
		return
	}

	result, err := s.submit(w, r, chi.URLParam(r, "id"), session.AddNote{
		CueID: req.CueID,
		Text:  req.Text,
		Actor: actorFrom(r.Context()),
	})
	if err != nil {
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/showcall/showcall-core/internal/show"
	"github.com/showcall/showcall-core/internal/showlog"
)

// Read-model handlers. Reads query the repository directly instead of going
// through the session command queue: commands only commit in memory after
// the durable write, so persisted state is never ahead of or behind what the
// sequencer has applied.

// handleCueSheet returns the show's cues grouped by department.
func (s *Server) handleCueSheet(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "id")

	if _, err := s.repo.GetShow(r.Context(), showID); err != nil {
		writeDomainError(w, err)
		return
	}

	cues, err := s.repo.ListCues(r.Context(), showID)
	if err != nil {
		s.logger.Error("loading cue sheet", "show_id", showID, "error", err)
		writeInternalError(w, "failed to load cue sheet")
		return
	}

	writeJSON(w, http.StatusOK, show.BuildCueSheet(cues))
}

// handleLiveStatus returns the live read-model: status, current and next
// cue, and the show clock.
func (s *Server) handleLiveStatus(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "id")

	sh, err := s.repo.GetShow(r.Context(), showID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	cues, err := s.repo.ListCues(r.Context(), showID)
	if err != nil {
		s.logger.Error("loading live status", "show_id", showID, "error", err)
		writeInternalError(w, "failed to load live status")
		return
	}

	writeJSON(w, http.StatusOK, show.BuildLiveStatus(sh, cues, time.Now().UTC()))
}

// handleShowLog returns the show's append-only event log, paginated and
// ordered by sequence number.
func (s *Server) handleShowLog(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "id")

	if _, err := s.repo.GetShow(r.Context(), showID); err != nil {
		writeDomainError(w, err)
		return
	}

	filter := showlog.Filter{
		EventType: showlog.EventType(r.URL.Query().Get("event_type")),
		CueID:     r.URL.Query().Get("cue_id"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.showLog.List(r.Context(), showID, filter)
	if err != nil {
		s.logger.Error("loading show log", "show_id", showID, "error", err)
		writeInternalError(w, "failed to load show log")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

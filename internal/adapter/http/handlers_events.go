package adapthttp

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pouchlog/internal/domain"
)

func (s *Server) handleLogEvent(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)

	var body struct {
		ContentMg       float64 `json:"contentMg"`
		DurationSeconds int64   `json:"durationSeconds"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	e, err := s.events.LogEvent(r.Context(), user.ID, body.ContentMg, time.Duration(body.DurationSeconds)*time.Second)
	if errors.Is(err, domain.ErrInvalidEvent) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	// New open event: the live countdown may need creating or recomputing.
	if user.ID == s.live.UserID() {
		if _, err := s.live.Sync(r.Context(), time.Now()); err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleEndEvent(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	id := chi.URLParam(r, "eventID")
	now := time.Now()

	closed, err := s.events.CloseEvent(r.Context(), user.ID, id, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if user.ID == s.live.UserID() {
		if _, err := s.live.Sync(r.Context(), now); err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"closed": closed})
}

func (s *Server) handleEndAll(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	now := time.Now()

	if user.ID == s.live.UserID() {
		closed, err := s.live.EndAll(r.Context(), now)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"closed": closed})
		return
	}

	closed, err := s.events.CloseAll(r.Context(), user.ID, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"closed": closed})
}

func (s *Server) handleOpenEvents(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	items, err := s.events.ListOpen(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	limit := intQuery(r, "limit", 20)
	items, err := s.events.ListRecent(r.Context(), user.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

package adapthttp

import (
	"errors"
	"net/http"
	"time"

	"pouchlog/internal/domain"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "liveState": s.live.State().String()})
}

// handleLive returns the authoritative live countdown state. When the event
// store is unreachable it degrades to the last snapshot, explicitly marked
// stale with its age, rather than returning an error page.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	rep, err := s.live.Sync(r.Context(), now)
	if err == nil {
		if rep == nil {
			writeJSON(w, http.StatusOK, map[string]any{"running": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"running":               true,
			"representativeEventId": rep.RepresentativeEventID,
			"aggregateDoseMg":       domain.RoundLevel(rep.AggregateDose),
			"endTime":               rep.EndTime,
			"lastUpdated":           rep.LastUpdated,
		})
		return
	}
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	rec, rerr := s.snaps.ReadSnapshot()
	if rerr != nil || rec == nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"running":               rec.Running,
		"representativeEventId": rec.RepresentativeEventID,
		"aggregateDoseMg":       domain.RoundLevel(rec.AggregateDose),
		"endTime":               rec.EndTime,
		"levelMg":               domain.RoundLevel(rec.Level),
		"stale":                 true,
		"staleSeconds":          int64(rec.Staleness(now).Seconds()),
	})
}

// handleSnapshot serves the raw cached record for display-only consumers.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	rec, err := s.snaps.ReadSnapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusOK, map[string]any{"present": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"present":      true,
		"record":       rec,
		"levelMg":      domain.RoundLevel(rec.Level),
		"staleSeconds": int64(rec.Staleness(time.Now()).Seconds()),
	})
}

// handleSyncNotify is invoked by peer devices after they change the shared
// event store. The notification carries no state; it only triggers an
// authoritative resync.
func (s *Server) handleSyncNotify(w http.ResponseWriter, r *http.Request) {
	if err := s.sync.HandleRemoteChange(r.Context(), time.Now()); err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

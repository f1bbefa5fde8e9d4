package adapthttp

import (
	"fmt"
	"net/http"
	"time"

	"pouchlog/internal/domain"
)

func (s *Server) handleCurrentLevel(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	now := time.Now()

	level, err := s.levels.CurrentLevel(r.Context(), user.ID, now)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"time":    now,
		"levelMg": domain.RoundLevel(level),
	})
}

func (s *Server) handleLevelSeries(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	now := time.Now()

	hours := intQuery(r, "hours", 24)
	if hours > 24*14 {
		hours = 24 * 14
	}
	stride := time.Duration(intQuery(r, "strideSeconds", 300)) * time.Second
	from := now.Add(-time.Duration(hours) * time.Hour)

	points, err := s.levels.HistorySeries(r.Context(), user.ID, from, now, stride)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	type samplePoint struct {
		Time    time.Time `json:"time"`
		LevelMg float64   `json:"levelMg"`
	}
	items := make([]samplePoint, 0, len(points))
	for _, p := range points {
		items = append(items, samplePoint{Time: p.Time, LevelMg: domain.RoundLevel(p.Level)})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"from":   from,
		"to":     now,
		"stride": fmt.Sprintf("%ds", int64(stride.Seconds())),
		"items":  items,
	})
}

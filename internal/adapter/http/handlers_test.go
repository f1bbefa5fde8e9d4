package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	adapthttp "pouchlog/internal/adapter/http"
	"pouchlog/internal/adapter/memory"
	"pouchlog/internal/app"
	"pouchlog/internal/domain"
)

// newTestServer wires the full stack over in-memory adapters with auth
// disabled, the same shape the local sqlite deployment uses.
func newTestServer(t *testing.T) (http.Handler, *memory.DB, *memory.SnapshotStore) {
	t.Helper()

	db := memory.New()
	snaps := memory.NewSnapshotStore()
	params := domain.DefaultParams()

	events := app.NewEventService(db)
	levels := app.NewLevelService(db, params)
	live := app.NewLiveService(db, snaps, params, 1)
	sync := app.NewSyncManager(live, snaps, nil)
	auth := app.NewAuthService(db, memory.NewSessionRepo(db))

	srv := adapthttp.New(events, levels, live, sync, auth, snaps).WithAuthDisabled()
	return srv.Handler(), db, snaps
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func TestHealthEndpoint(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec, body := doJSON(t, h, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["ok"] != true {
		t.Errorf("ok = %v, want true", body["ok"])
	}
	if body["liveState"] != "absent" {
		t.Errorf("liveState = %v, want absent", body["liveState"])
	}
}

func TestLogEventStartsLiveCountdown(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec, body := doJSON(t, h, http.MethodPost, "/api/events", map[string]any{
		"contentMg":       6,
		"durationSeconds": 1800,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatal("no event id in response")
	}

	rec, body = doJSON(t, h, http.MethodGet, "/api/live", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("live status = %d", rec.Code)
	}
	if body["running"] != true {
		t.Fatalf("running = %v, want true", body["running"])
	}
	if body["representativeEventId"] != id {
		t.Errorf("representative = %v, want %s", body["representativeEventId"], id)
	}
	if body["aggregateDoseMg"].(float64) != 6 {
		t.Errorf("aggregateDoseMg = %v, want 6", body["aggregateDoseMg"])
	}
}

func TestLogEventValidation(t *testing.T) {
	h, _, _ := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"zero content", map[string]any{"contentMg": 0, "durationSeconds": 1800}},
		{"excessive content", map[string]any{"contentMg": 500, "durationSeconds": 1800}},
		{"zero duration", map[string]any{"contentMg": 6, "durationSeconds": 0}},
		{"unknown field", map[string]any{"contentMg": 6, "durationSeconds": 1800, "bogus": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doJSON(t, h, http.MethodPost, "/api/events", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestEndEventIsBenignWhenRepeated(t *testing.T) {
	h, _, _ := newTestServer(t)

	_, body := doJSON(t, h, http.MethodPost, "/api/events", map[string]any{
		"contentMg":       6,
		"durationSeconds": 1800,
	})
	id := body["id"].(string)

	rec, body := doJSON(t, h, http.MethodPost, "/api/events/"+id+"/end", nil)
	if rec.Code != http.StatusOK || body["closed"] != true {
		t.Fatalf("first end: status %d, closed %v", rec.Code, body["closed"])
	}

	rec, body = doJSON(t, h, http.MethodPost, "/api/events/"+id+"/end", nil)
	if rec.Code != http.StatusOK || body["closed"] != false {
		t.Errorf("second end: status %d, closed %v; want 200, false", rec.Code, body["closed"])
	}
}

func TestEndAllTearsDownLive(t *testing.T) {
	h, _, _ := newTestServer(t)

	for range 2 {
		doJSON(t, h, http.MethodPost, "/api/events", map[string]any{
			"contentMg":       4,
			"durationSeconds": 1800,
		})
	}

	rec, body := doJSON(t, h, http.MethodPost, "/api/events/end-all", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["closed"].(float64) != 2 {
		t.Errorf("closed = %v, want 2", body["closed"])
	}

	_, body = doJSON(t, h, http.MethodGet, "/api/live", nil)
	if body["running"] != false {
		t.Errorf("running = %v after end-all, want false", body["running"])
	}
}

func TestOpenAndRecentEvents(t *testing.T) {
	h, _, _ := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/api/events", map[string]any{
		"contentMg":       6,
		"durationSeconds": 1800,
	})

	rec, body := doJSON(t, h, http.MethodGet, "/api/events/open", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("open status = %d", rec.Code)
	}
	if items := body["items"].([]any); len(items) != 1 {
		t.Errorf("open items = %d, want 1", len(items))
	}

	rec, body = doJSON(t, h, http.MethodGet, "/api/events/recent?limit=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("recent status = %d", rec.Code)
	}
	if items := body["items"].([]any); len(items) != 1 {
		t.Errorf("recent items = %d, want 1", len(items))
	}
}

func TestCurrentLevel(t *testing.T) {
	h, _, _ := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/api/events", map[string]any{
		"contentMg":       6,
		"durationSeconds": 1800,
	})

	rec, body := doJSON(t, h, http.MethodGet, "/api/levels/current", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, ok := body["levelMg"].(float64); !ok {
		t.Errorf("levelMg missing from %v", body)
	}
}

func TestLevelSeries(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec, body := doJSON(t, h, http.MethodGet, "/api/levels/series?hours=1&strideSeconds=600", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// One hour at a ten-minute stride, both endpoints inclusive.
	if items := body["items"].([]any); len(items) != 7 {
		t.Errorf("items = %d, want 7", len(items))
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	h, _, snaps := newTestServer(t)

	rec, body := doJSON(t, h, http.MethodGet, "/api/snapshot", nil)
	if rec.Code != http.StatusOK || body["present"] != false {
		t.Fatalf("empty snapshot: status %d, present %v", rec.Code, body["present"])
	}

	// Logging an event makes the live controller publish a snapshot.
	doJSON(t, h, http.MethodPost, "/api/events", map[string]any{
		"contentMg":       6,
		"durationSeconds": 1800,
	})

	if rec, _ := snaps.ReadSnapshot(); rec == nil || !rec.Running {
		t.Fatalf("snapshot store = %+v, want a running record", rec)
	}
	rec, body = doJSON(t, h, http.MethodGet, "/api/snapshot", nil)
	if rec.Code != http.StatusOK || body["present"] != true {
		t.Errorf("snapshot: status %d, present %v", rec.Code, body["present"])
	}
}

func TestAuthRequired(t *testing.T) {
	db := memory.New()
	snaps := memory.NewSnapshotStore()
	params := domain.DefaultParams()

	events := app.NewEventService(db)
	levels := app.NewLevelService(db, params)
	live := app.NewLiveService(db, snaps, params, 1)
	sync := app.NewSyncManager(live, snaps, nil)
	auth := app.NewAuthService(db, memory.NewSessionRepo(db))

	h := adapthttp.New(events, levels, live, sync, auth, snaps).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/events/open", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without credentials: status = %d, want 401", rec.Code)
	}

	// A forward-auth proxy header authenticates and auto-provisions.
	req = httptest.NewRequest(http.MethodGet, "/api/events/open", nil)
	req.Header.Set("Remote-User", "proxyuser")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with Remote-User: status = %d, want 200", rec.Code)
	}

	// Health stays reachable without credentials.
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health: status = %d, want 200", rec.Code)
	}
}

// failingEventRepo simulates an unreachable event store.
type failingEventRepo struct{}

var errDown = errors.New("connection refused")

func (failingEventRepo) AddEvent(ctx context.Context, userID int64, e domain.DoseEvent) error {
	return errDown
}

func (failingEventRepo) CloseEvent(ctx context.Context, userID int64, id string, endTime time.Time) (bool, error) {
	return false, errDown
}

func (failingEventRepo) ListEventsSince(ctx context.Context, userID int64, since time.Time) ([]domain.DoseEvent, error) {
	return nil, errDown
}

func (failingEventRepo) ListOpenEvents(ctx context.Context, userID int64) ([]domain.DoseEvent, error) {
	return nil, errDown
}

func (failingEventRepo) ListRecentEvents(ctx context.Context, userID int64, limit int) ([]domain.DoseEvent, error) {
	return nil, errDown
}

func TestLiveFallsBackToStaleSnapshot(t *testing.T) {
	db := memory.New()
	snaps := memory.NewSnapshotStore()
	params := domain.DefaultParams()

	lastUpdated := time.Now().Add(-5 * time.Minute)
	_ = snaps.WriteSnapshot(domain.SnapshotRecord{
		Level:                 1.2544,
		Running:               true,
		RepresentativeEventID: "a",
		EndTime:               time.Now().Add(10 * time.Minute),
		AggregateDose:         6,
		LastUpdated:           lastUpdated,
	})

	repo := failingEventRepo{}
	events := app.NewEventService(repo)
	levels := app.NewLevelService(repo, params)
	live := app.NewLiveService(repo, snaps, params, 1)
	sync := app.NewSyncManager(live, snaps, nil)
	auth := app.NewAuthService(db, memory.NewSessionRepo(db))

	h := adapthttp.New(events, levels, live, sync, auth, snaps).WithAuthDisabled().Handler()

	rec, body := doJSON(t, h, http.MethodGet, "/api/live", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with stale fallback", rec.Code)
	}
	if body["stale"] != true {
		t.Errorf("stale = %v, want true", body["stale"])
	}
	if body["levelMg"].(float64) != 1.254 {
		t.Errorf("levelMg = %v, want 1.254 (rounded)", body["levelMg"])
	}
	if body["staleSeconds"].(float64) < 290 {
		t.Errorf("staleSeconds = %v, want about 300", body["staleSeconds"])
	}

	// Sync notifications surface the outage instead of faking success.
	rec, _ = doJSON(t, h, http.MethodPost, "/api/sync/notify", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("sync notify status = %d, want 503", rec.Code)
	}

	// Level queries have no snapshot fallback of their own.
	rec, _ = doJSON(t, h, http.MethodGet, "/api/levels/current", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("current level status = %d, want 503", rec.Code)
	}
}

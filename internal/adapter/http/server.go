// Package adapthttp implements the HTTP adapter for the application. It is a
// thin consumer of the engine: handlers translate requests into service calls
// and render results; no absorption or live-state logic lives here.
package adapthttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pouchlog/internal/app"
	"pouchlog/internal/domain"
)

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	events *app.EventService
	levels *app.LevelService
	live   *app.LiveService
	sync   *app.SyncManager
	auth   *app.AuthService
	snaps  SnapshotReader

	oidcConfig  OIDCConfig
	disableAuth bool
}

// SnapshotReader is the read side of the snapshot cache, used by the fallback
// endpoints.
type SnapshotReader interface {
	ReadSnapshot() (*domain.SnapshotRecord, error)
}

// New creates a Server wired to the given application services.
func New(es *app.EventService, ls *app.LevelService, lv *app.LiveService, sm *app.SyncManager, as *app.AuthService, snaps SnapshotReader) *Server {
	return &Server{events: es, levels: ls, live: lv, sync: sm, auth: as, snaps: snaps}
}

// WithOIDC enables SSO login against the given provider configuration.
func (s *Server) WithOIDC(cfg OIDCConfig) *Server {
	s.oidcConfig = cfg
	return s
}

// WithAuthDisabled turns off session validation for local-only deployments
// and tests; every request then acts as the default single user.
func (s *Server) WithAuthDisabled() *Server {
	s.disableAuth = true
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/config", s.handleConfig)

		r.Post("/auth/setup", s.handleSetupUser)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.Get("/auth/sso/login", s.handleSSOLogin)
		r.Get("/auth/sso/callback", s.handleSSOCallback)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/events", s.handleLogEvent)
			r.Get("/events/open", s.handleOpenEvents)
			r.Get("/events/recent", s.handleRecentEvents)
			r.Post("/events/{eventID}/end", s.handleEndEvent)
			r.Post("/events/end-all", s.handleEndAll)

			r.Get("/levels/current", s.handleCurrentLevel)
			r.Get("/levels/series", s.handleLevelSeries)

			r.Get("/live", s.handleLive)
			r.Post("/sync/notify", s.handleSyncNotify)
		})

		// Snapshot reads bypass auth: constrained display surfaces read the
		// cache without credentials or access to the authoritative store.
		r.Get("/snapshot", s.handleSnapshot)
	})

	return withNoCache(r)
}

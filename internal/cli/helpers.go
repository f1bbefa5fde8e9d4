package cli

import (
	"fmt"

	"pouchlog/internal/adapter/snapshot"
	"pouchlog/internal/adapter/sqlite"
	"pouchlog/internal/app"
	"pouchlog/internal/config"
	"pouchlog/internal/domain"
)

// localEnv bundles the local-first stores and services the one-shot commands
// operate on.
type localEnv struct {
	cfg    config.Config
	db     *sqlite.DB
	snaps  *snapshot.Store
	params domain.Params
	events *app.EventService
	levels *app.LevelService
	live   *app.LiveService
}

func openLocal() (*localEnv, error) {
	cfg := config.FromEnv()

	dbPath := cfg.SQLitePath
	if dbPath == "" {
		var err error
		dbPath, err = sqlite.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	snapDir := cfg.SnapshotDir
	if snapDir == "" {
		snapDir, err = snapshot.DefaultDir()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("resolve snapshot dir: %w", err)
		}
	}
	snaps := snapshot.New(snapDir)

	params := domain.Params{
		AbsorptionFraction: cfg.Model.AbsorptionFraction,
		HalfLife:           cfg.Model.HalfLife,
	}

	return &localEnv{
		cfg:    cfg,
		db:     db,
		snaps:  snaps,
		params: params,
		events: app.NewEventService(db),
		levels: app.NewLevelService(db, params),
		live:   app.NewLiveService(db, snaps, params, cfg.LiveUserID),
	}, nil
}

func (e *localEnv) close() {
	_ = e.db.Close()
}

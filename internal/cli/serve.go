package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	adapthttp "pouchlog/internal/adapter/http"
	"pouchlog/internal/adapter/memory"
	"pouchlog/internal/adapter/peer"
	"pouchlog/internal/adapter/postgres"
	"pouchlog/internal/adapter/snapshot"
	"pouchlog/internal/adapter/sqlite"
	"pouchlog/internal/app"
	"pouchlog/internal/config"
	"pouchlog/internal/domain"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.FromEnv()

	var (
		eventRepo   domain.EventRepository
		userRepo    domain.UserRepository
		sessionRepo domain.SessionRepository
		closer      func() error
		authOff     = cfg.DisableAuth
	)

	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		eventRepo = db
		userRepo = db
		sessionRepo = postgres.NewSessionRepo(db)
		closer = db.Close
		fmt.Fprintln(os.Stderr, "  store: postgres")
	} else {
		dbPath := cfg.SQLitePath
		if dbPath == "" {
			var err error
			dbPath, err = sqlite.DefaultPath()
			if err != nil {
				return fmt.Errorf("resolve db path: %w", err)
			}
		}
		db, err := sqlite.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		eventRepo = db
		closer = db.Close
		// Local single-user mode: no durable account store, no login.
		mem := memory.New()
		userRepo = mem
		sessionRepo = memory.NewSessionRepo(mem)
		authOff = true
		fmt.Fprintf(os.Stderr, "  store: sqlite (%s)\n", dbPath)
	}
	defer closer() //nolint:errcheck

	snapDir := cfg.SnapshotDir
	if snapDir == "" {
		var err error
		snapDir, err = snapshot.DefaultDir()
		if err != nil {
			return fmt.Errorf("resolve snapshot dir: %w", err)
		}
	}
	snaps := snapshot.New(snapDir)

	params := domain.Params{
		AbsorptionFraction: cfg.Model.AbsorptionFraction,
		HalfLife:           cfg.Model.HalfLife,
	}

	var remote domain.Peer
	if cfg.PeerURL != "" {
		remote = peer.New(cfg.PeerURL)
		fmt.Fprintf(os.Stderr, "  peer: %s\n", cfg.PeerURL)
	}

	eventSvc := app.NewEventService(eventRepo)
	levelSvc := app.NewLevelService(eventRepo, params)
	liveSvc := app.NewLiveService(eventRepo, snaps, params, cfg.LiveUserID)
	syncMgr := app.NewSyncManager(liveSvc, snaps, remote)
	authSvc := app.NewAuthService(userRepo, sessionRepo)

	liveSvc.Start(cfg.SyncInterval)
	defer liveSvc.Stop()

	srv := adapthttp.New(eventSvc, levelSvc, liveSvc, syncMgr, authSvc, snaps)
	if authOff {
		srv.WithAuthDisabled()
	}
	if cfg.OIDC.Issuer != "" {
		oidcCfg, err := adapthttp.NewOIDCConfig(context.Background(), cfg.OIDC.Issuer, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret, cfg.OIDC.RedirectURL)
		if err != nil {
			return err
		}
		srv.WithOIDC(oidcCfg)
		fmt.Fprintf(os.Stderr, "  sso: %s\n", cfg.OIDC.Issuer)
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "pouchlog serving on %s\n", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}

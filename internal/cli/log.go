package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pouchlog/internal/adapter/peer"
)

var (
	logContentMg float64
	logDuration  time.Duration
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log a new pouch",
	RunE:  runLog,
}

func init() {
	logCmd.Flags().Float64Var(&logContentMg, "mg", 0, "declared content in mg (default from POUCHLOG_DEFAULT_CONTENT_MG)")
	logCmd.Flags().DurationVar(&logDuration, "duration", 0, "planned in-mouth duration (default from POUCHLOG_DEFAULT_DURATION)")
}

func runLog(cmd *cobra.Command, args []string) error {
	env, err := openLocal()
	if err != nil {
		return err
	}
	defer env.close()

	contentMg := logContentMg
	if contentMg == 0 {
		contentMg = env.cfg.Model.DefaultContentMg
	}
	duration := logDuration
	if duration == 0 {
		duration = env.cfg.Model.DefaultDuration
	}

	ctx := context.Background()
	e, err := env.events.LogEvent(ctx, env.cfg.LiveUserID, contentMg, duration)
	if err != nil {
		return err
	}

	rep, err := env.live.Sync(ctx, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("logged %.1fmg pouch %s for %s\n", e.Content, e.ID, duration)
	if rep != nil {
		fmt.Printf("live countdown until %s (%.1fmg total in)\n", rep.EndTime.Local().Format(time.Kitchen), rep.AggregateDose)
	}

	notifyPeer(ctx, env.cfg.PeerURL)
	return nil
}

// notifyPeer tells a paired device the shared store changed. Best effort:
// the peer resyncs from the store, so a missed notification only delays it
// until its next tick.
func notifyPeer(ctx context.Context, peerURL string) {
	if peerURL == "" {
		return
	}
	c := peer.New(peerURL)
	if !c.Reachable() {
		return
	}
	if err := c.NotifyChange(ctx); err != nil {
		fmt.Printf("peer notify failed: %v\n", err)
	}
}

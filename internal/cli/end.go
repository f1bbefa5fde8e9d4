package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var endAll bool

var endCmd = &cobra.Command{
	Use:   "end [event-id]",
	Short: "End an open pouch, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEnd,
}

func init() {
	endCmd.Flags().BoolVar(&endAll, "all", false, "end every open pouch")
}

func runEnd(cmd *cobra.Command, args []string) error {
	env, err := openLocal()
	if err != nil {
		return err
	}
	defer env.close()

	ctx := context.Background()
	now := time.Now()

	switch {
	case endAll:
		closed, err := env.live.EndAll(ctx, now)
		if err != nil {
			return err
		}
		fmt.Printf("ended %d pouch(es)\n", closed)

	case len(args) == 1:
		closed, err := env.events.CloseEvent(ctx, env.cfg.LiveUserID, args[0], now)
		if err != nil {
			return err
		}
		if !closed {
			fmt.Println("already ended")
		} else {
			fmt.Println("ended")
		}
		if _, err := env.live.Sync(ctx, now); err != nil {
			return err
		}

	default:
		// No id given: end the oldest open pouch.
		open, err := env.events.ListOpen(ctx, env.cfg.LiveUserID)
		if err != nil {
			return err
		}
		if len(open) == 0 {
			fmt.Println("nothing open")
			return nil
		}
		if _, err := env.events.CloseEvent(ctx, env.cfg.LiveUserID, open[0].ID, now); err != nil {
			return err
		}
		fmt.Printf("ended %s\n", open[0].ID)
		if _, err := env.live.Sync(ctx, now); err != nil {
			return err
		}
	}

	notifyPeer(ctx, env.cfg.PeerURL)
	return nil
}

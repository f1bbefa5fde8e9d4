package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"pouchlog/internal/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current level and live countdown",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	env, err := openLocal()
	if err != nil {
		return err
	}
	defer env.close()

	ctx := context.Background()
	now := time.Now()

	table := uitable.New()
	table.MaxColWidth = 60

	level, lerr := env.levels.CurrentLevel(ctx, env.cfg.LiveUserID, now)
	if lerr == nil {
		table.AddRow("level:", fmt.Sprintf("%.3f mg", domain.RoundLevel(level)))

		rep, serr := env.live.Sync(ctx, now)
		if serr != nil {
			return serr
		}
		if rep == nil {
			table.AddRow("countdown:", color.New(color.Faint).Sprint("not running"))
		} else {
			remaining := time.Until(rep.EndTime).Round(time.Second)
			if remaining < 0 {
				remaining = 0
			}
			table.AddRow("countdown:", color.GreenString("%s remaining", remaining))
			table.AddRow("dose in:", fmt.Sprintf("%.1f mg", rep.AggregateDose))
			table.AddRow("representative:", rep.RepresentativeEventID)
		}
		fmt.Println(table)
		return nil
	}

	// Store unreachable: fall back to the snapshot and say how old it is.
	rec, rerr := env.snaps.ReadSnapshot()
	if rerr != nil || rec == nil {
		return lerr
	}
	stale := rec.Staleness(now).Round(time.Second)
	table.AddRow("level:", fmt.Sprintf("%.3f mg", domain.RoundLevel(rec.Level)))
	if rec.Running {
		table.AddRow("countdown:", color.GreenString("until %s", rec.EndTime.Local().Format(time.Kitchen)))
		table.AddRow("dose in:", fmt.Sprintf("%.1f mg", rec.AggregateDose))
	} else {
		table.AddRow("countdown:", color.New(color.Faint).Sprint("not running"))
	}
	table.AddRow("", color.YellowString("stale since %s (%s ago)", rec.LastUpdated.Local().Format(time.Kitchen), stale))
	fmt.Println(table)
	return nil
}

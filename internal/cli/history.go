package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent pouches",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of events to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	env, err := openLocal()
	if err != nil {
		return err
	}
	defer env.close()

	events, err := env.events.ListRecent(context.Background(), env.cfg.LiveUserID, historyLimit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("no events yet")
		return nil
	}

	table := uitable.New()
	table.AddRow("STARTED", "MG", "DURATION", "STATUS")
	for _, e := range events {
		status := color.GreenString("open")
		if e.EndTime != nil {
			status = fmt.Sprintf("ended %s", e.EndTime.Local().Format(time.Kitchen))
		}
		table.AddRow(
			e.StartTime.Local().Format("Jan 2 15:04"),
			fmt.Sprintf("%.1f", e.Content),
			e.PlannedDuration.String(),
			status,
		)
	}
	fmt.Println(table)
	return nil
}

// Package cli implements the pouchlog command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pouchlog",
	Short: "Track nicotine pouch intake and active levels",
	Long:  "Pouchlog records pouch intake events and computes the active nicotine level over time, keeping one live countdown consistent across every display surface.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(endCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
}

package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/holocron-dev/holocron/internal/ui"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show index size, embedding mode, freshness, and recent activity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := newEngine()
		defer eng.Dispose()

		stats, err := eng.Stats()
		if err != nil {
			return err
		}
		fresh, err := eng.CheckFreshness(flagRoot)
		if err != nil {
			return err
		}

		p := ui.NewPrinter(cmd.OutOrStdout(), ui.ForStdout())
		p.Summary(
			"chunks", strconv.FormatInt(stats.Chunks, 10),
			"vectors", strconv.FormatBool(stats.HasVectors),
			"dimensions", strconv.Itoa(stats.Dimensions),
			"freshness", fresh.Decision.String())

		for _, ev := range stats.Events {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-11s files=%d added=%d removed=%d %s\n",
				time.UnixMilli(ev.CreatedAt).Format(time.RFC3339),
				ev.Type, ev.FilesChanged, ev.ChunksAdded, ev.ChunksRemoved, ev.CommitSHA)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/holocron-dev/holocron/internal/ui"
)

var flagBuildLinks bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a source tree into the local database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := flagRoot
		if len(args) == 1 {
			root = args[0]
		}

		eng := newEngine()
		defer eng.Dispose()

		res, err := eng.IndexDirectory(cmd.Context(), root)
		if err != nil {
			return err
		}

		if flagBuildLinks {
			links, err := eng.BuildLinks()
			if err != nil {
				return fmt.Errorf("build links: %w", err)
			}
			ui.NewPrinter(cmd.OutOrStdout(), ui.ForStdout()).Summary(
				"files", strconv.Itoa(res.IndexedFiles),
				"chunks", strconv.Itoa(res.Chunks),
				"links", strconv.Itoa(links))
			return nil
		}

		ui.NewPrinter(cmd.OutOrStdout(), ui.ForStdout()).Summary(
			"files", strconv.Itoa(res.IndexedFiles),
			"chunks", strconv.Itoa(res.Chunks))
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every indexed chunk and forget the last indexed commit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := newEngine()
		defer eng.Dispose()

		if err := eng.ClearIndex(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "index cleared")
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&flagBuildLinks, "links", false, "build the chunk similarity graph after indexing")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(clearCmd)
}

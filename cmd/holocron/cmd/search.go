package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/holocron-dev/holocron/internal/format"
	"github.com/holocron-dev/holocron/internal/search"
	"github.com/holocron-dev/holocron/internal/ui"
)

var (
	flagMaxResults int
	flagMinScore   float64
	flagLanguages  []string
	flagDirectory  string
	flagJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the indexed codebase with hybrid retrieval",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := newEngine()
		defer eng.Dispose()

		results, err := eng.Search(cmd.Context(), args[0], search.Options{
			MaxResults: flagMaxResults,
			MinScore:   flagMinScore,
			Languages:  flagLanguages,
			Directory:  flagDirectory,
		})
		if err != nil {
			return err
		}

		if flagJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(results)
		}
		ui.NewPrinter(cmd.OutOrStdout(), ui.ForStdout()).Results(results)
		return nil
	},
}

var enhanceCmd = &cobra.Command{
	Use:   "enhance <prompt>",
	Short: "Wrap a prompt with a codebase_context block of relevant chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := newEngine()
		defer eng.Dispose()

		results, err := eng.Search(cmd.Context(), args[0], search.Options{
			MaxResults: flagMaxResults,
		})
		if err != nil {
			// The enhance path fails open: the prompt goes through
			// unmodified rather than blocking the caller.
			fmt.Fprintln(cmd.OutOrStdout(), args[0])
			return nil
		}

		block := eng.FormatContext(results, args[0], format.Options{})
		if block == "" {
			fmt.Fprintln(cmd.OutOrStdout(), args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", block, args[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, enhanceCmd} {
		c.Flags().IntVarP(&flagMaxResults, "max-results", "n", 10, "maximum number of results")
	}
	searchCmd.Flags().Float64Var(&flagMinScore, "min-score", 0, "drop results scoring below this value")
	searchCmd.Flags().StringSliceVar(&flagLanguages, "language", nil, "restrict results to these languages")
	searchCmd.Flags().StringVar(&flagDirectory, "directory", "", "restrict results to this path prefix")
	searchCmd.Flags().BoolVar(&flagJSON, "json", false, "emit results as JSON")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(enhanceCmd)
}

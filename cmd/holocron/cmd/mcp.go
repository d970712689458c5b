package cmd

import (
	"github.com/spf13/cobra"

	"github.com/holocron-dev/holocron/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the engine to AI clients over MCP stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := newEngine()
		defer eng.Dispose()

		srv, err := mcp.NewServer(eng, flagRoot)
		if err != nil {
			return err
		}
		return srv.Serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

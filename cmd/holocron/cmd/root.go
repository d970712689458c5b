// Package cmd implements the holocron CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/holocron-dev/holocron/internal/chunker"
	"github.com/holocron-dev/holocron/internal/config"
	"github.com/holocron-dev/holocron/internal/embed"
	"github.com/holocron-dev/holocron/internal/engine"
	"github.com/holocron-dev/holocron/internal/errors"
	"github.com/holocron-dev/holocron/internal/logging"
	"github.com/holocron-dev/holocron/pkg/version"
)

var (
	flagRoot     string
	flagLogLevel string

	cfg        *config.Config
	logCleanup func()
)

var rootCmd = &cobra.Command{
	Use:           "holocron",
	Short:         "Local codebase intelligence: index a source tree and search it by meaning",
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagRoot == "" {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("resolve working directory: %w", err)
			}
			flagRoot = wd
		}

		var err error
		cfg, err = config.Load(flagRoot)
		if err != nil {
			return err
		}

		level := cfg.Server.LogLevel
		if flagLogLevel != "" {
			level = flagLogLevel
		}
		logCleanup, err = logging.SetupDefault(level)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			logCleanup()
		}
	},
}

// Execute runs the CLI.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errors.FormatForCLI(err))
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagRoot, "root", "r", "", "project root (default: working directory)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log verbosity: debug, info, warn, error")
}

// newEngine builds an engine from the loaded config.
func newEngine() *engine.Engine {
	return engine.New(engine.Config{
		PersistPath: cfg.Storage.PersistPath,
		RootPath:    flagRoot,
		Embed: embed.Config{
			Provider: cfg.Embeddings.Provider,
			BaseURL:  cfg.Embeddings.BaseURL,
			Model:    cfg.Embeddings.Model,
		},
		ChunkMode: chunker.Mode(cfg.Chunker.Mode),
	})
}

// Package cli provides the driveindex command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/driveindex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/driveindex/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

var (
	configPath string
	envFiles   []string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "driveindex",
	Short: "Sync Google Drive documents into a search index",
	Long: `driveindex keeps a search index in step with Google Drive.

Each run removes files that disappeared from the configured roots, then
downloads, analyses and embeds every supported file that is new or changed.
Metadata, vectors and extracted images are kept consistent across runs.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default ~/.driveindex/config.toml)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"},
		"dotenv files applied over the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads and validates the configuration. Replaced in tests.
var loadConfig = func() (*file.Config, error) {
	cfg, err := file.Loader{Path: configPath, EnvFiles: envFiles}.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

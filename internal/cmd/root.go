// Package cmd implements the bodyshop command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/antelabs/bodyshop/internal/config"
	"github.com/antelabs/bodyshop/internal/observability"
	"github.com/antelabs/bodyshop/pkg/model"
	"github.com/antelabs/bodyshop/pkg/store"
)

var rootCmd = &cobra.Command{
	Use:   "bodyshop",
	Short: "Workshop job management and multi-backend sync",
	Long: `bodyshop manages an auto body shop's job list locally and keeps it
synchronized with a remote store (Firestore or a Google Sheet).

Local state lives in two JSON blobs under the data directory. A sync
fetches the remote collection, merges it with the local one under the
engine's precedence rules, writes the result back, and adopts the
merged list as the new source of truth.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	cfgFile  string
	logLevel string
	dataDir  string

	// cfg and localStore are resolved once in the persistent pre-run
	// and shared by all commands.
	cfg        *config.Config
	localStore *store.Store
)

func init() {
	cobra.OnInitialize()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./bodyshop.yaml or ~/.bodyshop/bodyshop.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding jobs.json and settings.json")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Logging.Level = logLevel
		}
		if dataDir != "" {
			loaded.DataDir = dataDir
		}

		if err := observability.Init(observability.Options{
			Level:   loaded.Logging.Level,
			LogFile: loaded.Logging.File,
		}); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}

		cfg = loaded
		localStore = store.New(loaded.DataDir)
		return nil
	}
}

// effectiveSettings loads the persisted settings blob and overlays any
// credentials injected through the environment or the config file.
func effectiveSettings() (model.AppSettings, error) {
	persisted, err := localStore.LoadSettings()
	if err != nil {
		return model.AppSettings{}, err
	}
	return config.MergeSettings(persisted, cfg.Settings), nil
}

// Execute runs the CLI.
func Execute() {
	defer observability.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

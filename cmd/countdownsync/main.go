package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"countdowntodo-sync/internal/config"
	"countdowntodo-sync/internal/logging"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "countdownsync",
	Short: "Sync server for todos, countdowns and app usage",
	Long: `countdownsync keeps todos and countdowns consistent across devices with
last-writer-wins merging, and aggregates per-device app usage through a shared
identity mapping table.

Settings come from --config, CLOUD_SYNC_* environment variables and flags.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.AddCommand(serveCmd, migrateCmd, mappingsCmd)
}

func loadConfig(cmd *cobra.Command) (config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.NewWithOptions(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  50,
		MaxBackups: 3,
	})
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

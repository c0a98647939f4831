package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/abefas/EmberTracker/config"
)

var Version = "dev"

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "embertracker",
		Short:         "Ember Tracker - completed task history and realtime relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe, // serving is the default action
	}
	root.Version = Version
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (EMBER_* env vars override it)")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newConfigCmd())
	return root
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

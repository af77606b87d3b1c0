// Package cmd defines and implements the CLI commands for the hotelharvest
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hqnguyen/hotelharvest/internal/config"
	"github.com/hqnguyen/hotelharvest/internal/logging"
)

var cfgFile string

// runtime bundles the pieces every subcommand needs.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

func loadRuntime() (*runtime, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &runtime{cfg: cfg, logger: logger}, nil
}

func (rt *runtime) close() {
	_ = rt.logger.Sync() //nolint:errcheck // best-effort flush
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hotelharvest",
		Short: "Campaign-based hotel data harvester",
		Long: `hotelharvest runs crawling campaigns over partitioned hotel URL sets,
validates the harvested entities, and reconciles each campaign's output
against its targets to produce the next campaign's work list.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus HARVEST_* env)")

	cmd.AddCommand(newHarvestCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newReconcileCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "hotelharvest: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mobilepro.local/hunt-gateway/internal/config"
	"mobilepro.local/hunt-gateway/internal/logging"
	"mobilepro.local/hunt-gateway/internal/store"
)

// app carries what every subcommand needs once the root has loaded settings.
type app struct {
	cfg    config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var logLevel string

	root := &cobra.Command{
		Use:           "hunt-gateway",
		Short:         "Hunt the 5 billing-grid training gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newSeedCmd(a),
		newScenariosCmd(a),
	)
	return root
}

// openStore opens the configured record store for commands that do not need
// an agent.
func (a *app) openStore() (*store.GormStore, error) {
	if err := a.cfg.ValidateStore(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	st, err := store.NewGormStore(a.cfg.DBDriver, a.cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (a *app) closeStore(st store.Store) {
	if err := st.Close(); err != nil {
		a.logger.Warn("store close error", zap.Error(err))
	}
}

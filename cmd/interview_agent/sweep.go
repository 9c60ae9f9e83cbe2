package main

import (
	"fmt"

	"github.com/jonathan/interview-engine/internal/config"
	"github.com/jonathan/interview-engine/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire or time out every overdue session once",
	Long:  "Runs a single deadline sweep over the configured session store and exits. Useful from cron when the server runs without timers.",
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Store.Driver == config.DriverMemory {
		return fmt.Errorf("sweep needs a persistent store, got driver %q", cfg.Store.Driver)
	}
	// One-shot runs never arm timers.
	cfg.Engine.Timers = false

	d, err := buildDeps(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	sweeper := session.NewSweeper(d.engine, session.SweeperOptions{
		BatchSize:   cfg.Engine.SweepBatch,
		Concurrency: cfg.Engine.SweepConcurrency,
	})
	n, err := sweeper.SweepOnce(cmd.Context())
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	log.Info("sweep finished", zap.Int("enforced", n))
	fmt.Fprintf(cmd.OutOrStdout(), "Enforced deadlines on %d session(s)\n", n)
	return nil
}

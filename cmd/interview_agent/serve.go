package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/interview-engine/internal/config"
	"github.com/jonathan/interview-engine/internal/server"
	"github.com/jonathan/interview-engine/internal/server/ratelimit"
	"github.com/jonathan/interview-engine/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that schedules and runs adaptive interview sessions.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	var jwtCfg *config.JWTConfig
	if cfg.Server.AuthRequired {
		jwtCfg, err = config.NewJWTConfig()
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := buildDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	rl := cfg.RateLimit
	srv, err := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimit:       ratelimit.NewConfig(rl.Enabled, rl.DefaultLimit, rl.DefaultWindow, rl.CleanupInterval, rl.Whitelist, rl.Blacklist),
		JWT:             jwtCfg,
	}, d.engine, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	sweeper := session.NewSweeper(d.engine, session.SweeperOptions{
		Interval:    cfg.Engine.SweepInterval,
		BatchSize:   cfg.Engine.SweepBatch,
		Concurrency: cfg.Engine.SweepConcurrency,
	})

	log.Info("interview engine starting",
		zap.String("store", cfg.Store.Driver),
		zap.String("bank", cfg.Bank.Source),
		zap.Bool("auth", jwtCfg != nil),
		zap.Bool("timers", cfg.Engine.Timers))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return sweeper.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/interview-engine/internal/config"
	"github.com/jonathan/interview-engine/internal/db"
	"github.com/jonathan/interview-engine/internal/notify"
	"github.com/jonathan/interview-engine/internal/questionbank"
	"github.com/jonathan/interview-engine/internal/session"
	"github.com/jonathan/interview-engine/internal/store"
	"go.uber.org/zap"
)

// deps holds the collaborators shared by serve and sweep.
type deps struct {
	store     store.Store
	bank      questionbank.Bank
	publisher *notify.Dispatcher
	engine    *session.Engine
	closers   []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// buildDeps wires the store, bank, notifier and engine selected by cfg.
func buildDeps(ctx context.Context, cfg *config.Config, log *zap.Logger) (*deps, error) {
	d := &deps{}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	var database *db.DB
	if cfg.Store.Driver == config.DriverPostgres || cfg.Bank.Source == config.BankPostgres {
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres driver or bank")
		}
		conn, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		database = conn
		d.closers = append(d.closers, database.Close)
	}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		d.store = database
	case config.DriverSQLite:
		st, err := store.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		d.store = st
		d.closers = append(d.closers, func() {
			if err := st.Close(); err != nil {
				log.Warn("failed to close sqlite store", zap.Error(err))
			}
		})
	default:
		d.store = store.NewMemory()
	}

	bank, err := buildBank(cfg, database)
	if err != nil {
		return nil, err
	}
	d.bank = bank

	notifiers := []notify.Notifier{}
	if cfg.Notify.LogEvents {
		notifiers = append(notifiers, notify.NewLogNotifier(log))
	}
	if cfg.Notify.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Notify.WebhookURL, &http.Client{}, cfg.Notify.WebhookHeaders))
	}
	d.publisher = notify.NewDispatcher(log, cfg.Notify.QueueSize, cfg.Notify.Timeout, notifiers...)
	d.closers = append(d.closers, d.publisher.Stop)

	engine, err := session.New(d.store, d.bank, session.Options{
		Defaults:          cfg.Engine.Session,
		MaxCommitAttempts: cfg.Engine.MaxCommitAttempts,
		Retention:         cfg.Store.Retention,
		Bias:              cfg.Bias,
		Publisher:         d.publisher,
		Logger:            log,
		DisableTimers:     !cfg.Engine.Timers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	d.engine = engine
	d.closers = append(d.closers, engine.Close)

	ok = true
	return d, nil
}

func buildBank(cfg *config.Config, database *db.DB) (questionbank.Bank, error) {
	var bank questionbank.Bank
	switch cfg.Bank.Source {
	case config.BankPostgres:
		bank = database
	default:
		fb, err := questionbank.LoadFile(cfg.Bank.Path)
		if err != nil {
			return nil, err
		}
		bank = fb
	}
	if cfg.Bank.CacheTTL > 0 {
		bank = questionbank.NewCached(bank, cfg.Bank.CacheTTL)
	}
	return bank, nil
}

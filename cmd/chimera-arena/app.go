package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ericogr/chimera-arena/internal/api"
	"github.com/ericogr/chimera-arena/internal/broadcast"
	"github.com/ericogr/chimera-arena/internal/clock"
	"github.com/ericogr/chimera-arena/internal/config"
	"github.com/ericogr/chimera-arena/internal/constants"
	"github.com/ericogr/chimera-arena/internal/engine"
	"github.com/ericogr/chimera-arena/internal/logging"
	"github.com/ericogr/chimera-arena/internal/service"
	"github.com/ericogr/chimera-arena/internal/storage"
)

type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    storage.Store
	handler  *api.GameHandler
	driver   *service.Driver
	watchdog *service.Watchdog
}

// openStore picks the store implementation named by the config.
func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return storage.NewMemoryStore(), nil
	case config.DriverPostgres:
		return storage.OpenPostgres(ctx, cfg.DSN)
	case config.DriverSQLite:
		db, err := storage.OpenAndMigrate(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return storage.NewSQLiteRepository(db), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	catalog, err := config.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	logging.Info("Storage ready", logging.Fields{constants.LogFieldDriver: cfg.Storage.Driver})

	b := cfg.Battle
	clk := clock.Real{}
	hub := broadcast.NewHub(log.Named("hub"))
	mgr := service.NewManager(store, engine.NewMachine(log.Named("engine")), hub, clk, log.Named("consistency"), service.RetryPolicy{
		Cap:            b.RetryCap,
		InitialBackoff: b.RetryInitialBackoff,
		MaxBackoff:     b.RetryMaxBackoff,
	})
	queue := service.NewActionQueue(clk, b.MaxQueueDepth, b.MinActionInterval, log.Named("queue"))
	driver := service.NewDriver(mgr, service.DriverConfig{
		InterTurnDelay:  b.InterTurnDelay,
		MaxTurns:        b.MaxTurns,
		StalemateRounds: b.StalemateRounds,
	}, log.Named("driver"))
	svc := service.NewService(ctx, mgr, queue, driver, catalog, log.Named("service"))

	return &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		handler:  api.NewGameHandler(svc, hub, catalog, cfg.Server.AllowedOrigins),
		driver:   driver,
		watchdog: service.NewWatchdog(mgr, b.TurnTimeLimit, b.WatchdogInterval, log.Named("watchdog")),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logging.Warn("Failed to close store", logging.Fields{"error": err.Error()})
	}
}

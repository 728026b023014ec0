package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ericogr/chimera-arena/internal/config"
	"github.com/ericogr/chimera-arena/internal/constants"
	"github.com/ericogr/chimera-arena/internal/logging"
	"github.com/ericogr/chimera-arena/internal/telemetry"
	"github.com/ericogr/chimera-arena/internal/version"
)

func main() {
	boot, err := config.ParseBootstrap()
	if err != nil {
		logging.Fatal("Invalid environment", err, nil)
	}
	cfg, err := config.Load(boot.ConfigPath)
	if err != nil {
		logging.Fatal("Missing or invalid arena configuration", err, logging.Fields{constants.LogFieldPath: boot.ConfigPath})
	}
	log, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		logging.Fatal("Invalid logging configuration", err, nil)
	}
	defer logging.Sync()
	logging.Info("Starting chimera-arena", logging.Fields{"version": version.Version, "commit": version.Commit})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		logging.Fatal("Failed to set up tracing", err, nil)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logging.Warn("Tracing shutdown failed", logging.Fields{"error": err.Error()})
		}
	}()

	app, err := newApp(ctx, cfg, log)
	if err != nil {
		logging.Fatal("Failed to initialize", err, nil)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logging.Error("Server stopped with error", err, nil)
	}
}

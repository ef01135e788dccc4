package main

import (
	"context"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"adpulse/adapters/api"
	"adpulse/adapters/db"
	"adpulse/app"
	"adpulse/internal/config"
	"adpulse/internal/logging"
	"adpulse/internal/telemetry"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logging.Global().Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Global().Fatal("invalid configuration", "error", err)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		logging.Global().Fatal("failed to create logger", "error", err)
	}
	logging.SetGlobal(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped with error", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	conn, err := db.OpenAndMigrate(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Info("database ready", "driver", cfg.Database.Driver)

	metrics := telemetry.NewMetrics()
	svc, err := app.NewAnalyticsService(
		db.NewMetricRepository(conn, nil),
		db.NewAnalysisRepository(conn),
		cfg.Analysis,
		app.WithLogger(logger.With("component", "analytics")),
		app.WithTelemetry(metrics),
	)
	if err != nil {
		return err
	}

	if cfg.Profiling.Enabled {
		go func() {
			logger.Info("pprof server starting", "addr", cfg.Profiling.Addr)
			if err := http.ListenAndServe(cfg.Profiling.Addr, nil); err != nil {
				logger.Error("pprof server failed", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewServer(svc, conn, logger, metrics).Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atelier/internal/config"
	"atelier/internal/daemon"
	"atelier/internal/logging"
	"atelier/internal/preflight"
	"atelier/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logPath := logFilePath(cfg, time.Now())
	logger, err := logging.NewFromConfig(cfg, logPath)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, retentionTargets(cfg, logPath)...)

	logPreflight(logger, preflight.RunAll(ctx, cfg))

	if code := serve(ctx, cfg, logger); code != 0 {
		os.Exit(code)
	}
}

// serve runs the daemon until ctx is done and returns the process exit code.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) int {
	st, err := store.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open catalogue store", "store_open_failed", logging.Error(err))
		return 1
	}

	server, err := buildServer(ctx, cfg, st, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "build api server", "server_build_failed", logging.Error(err))
		_ = st.Close()
		return 1
	}

	d, err := daemon.New(cfg, st, server, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "create daemon", "daemon_create_failed", logging.Error(err))
		_ = st.Close()
		return 1
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logging.ErrorWithContext(logger, "daemon start", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stop the other atelierd or free paths.api_bind"),
		)
		return 1
	}

	<-ctx.Done()
	logger.Info("atelierd shutting down")
	return 0
}

package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"atelier/internal/config"
	"atelier/internal/logging"
	"atelier/internal/store"
	"atelier/internal/webapp"
)

// ErrAlreadyRunning is returned when another daemon holds the instance lock.
var ErrAlreadyRunning = errors.New("another atelier daemon instance is already running")

// Daemon coordinates the HTTP server and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	server *webapp.Server

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool        `json:"running"`
	Address      string      `json:"address,omitempty"`
	DatabasePath string      `json:"database_path"`
	LockFilePath string      `json:"lock_file_path"`
	Catalogue    store.Stats `json:"catalogue"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, server *webapp.Server, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || server == nil {
		return nil, errors.New("daemon requires config, store, and server")
	}
	lockPath := LockPath(cfg)
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		server:   server,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// LockPath is the single-instance lock file for cfg.
func LockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "atelierd.lock")
}

// Start acquires the instance lock and begins serving.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("atelier daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.server.Addr()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop shuts the server down and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
			logging.Error(err),
			logging.String("lock", d.lockPath),
			logging.String(logging.FieldImpact, "a stale lock file remains until the process exits"),
		)
	}
	d.running.Store(false)
	d.logger.Info("atelier daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Status reports whether the daemon is serving and the catalogue counts.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if status.Running {
		status.Address = d.server.Addr()
	}
	stats, err := d.store.Stats(ctx)
	if err != nil {
		logging.WarnWithContext(d.logger, "catalogue stats unavailable", "daemon_stats_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "status reports zero counts"),
		)
		return status
	}
	status.Catalogue = stats
	return status
}

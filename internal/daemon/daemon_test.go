package daemon_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"atelier/internal/config"
	"atelier/internal/daemon"
	"atelier/internal/store"
	"atelier/internal/stylist"
	"atelier/internal/testsupport"
	"atelier/internal/uploads"
	"atelier/internal/webapp"
)

func newDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *store.Store) {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	files := uploads.New(cfg.Paths.UploadDir, cfg.Uploads)
	service := stylist.New(stylist.Options{
		Store:     st,
		Uploads:   files,
		Describer: testsupport.StaticCompleter("A plain white shirt."),
	})
	server, err := webapp.New(webapp.Options{
		Bind:    cfg.Paths.APIBind,
		Store:   st,
		Uploads: files,
		Stylist: service,
	})
	if err != nil {
		t.Fatalf("webapp.New: %v", err)
	}
	d, err := daemon.New(cfg, st, server, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d, st
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, st := newDaemon(t, cfg)
	ctx := context.Background()

	if _, err := st.AddClothing(ctx, "shirt.png", "A plain white shirt."); err != nil {
		t.Fatalf("AddClothing: %v", err)
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running || status.Address == "" {
		t.Fatalf("expected running daemon with address, got %+v", status)
	}
	if status.Catalogue.Clothes != 1 {
		t.Fatalf("expected one catalogued item, got %+v", status.Catalogue)
	}
	if status.LockFilePath != daemon.LockPath(cfg) {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}

	resp, err := http.Get("http://" + status.Address + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from running server, got %d", resp.StatusCode)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, _ := newDaemon(t, cfg)
	second, _ := newDaemon(t, cfg)
	ctx := context.Background()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(ctx); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing store and server")
	}
}

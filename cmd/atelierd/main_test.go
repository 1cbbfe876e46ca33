package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"atelier/internal/daemon"
	"atelier/internal/logging"
	"atelier/internal/testsupport"
)

func TestLogFilePath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	want := filepath.Join(cfg.Paths.LogDir, "atelierd-20260304T050607.log")
	if got := logFilePath(cfg, now); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRetentionTargetsExcludeCurrentLog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	current := logFilePath(cfg, time.Now())
	targets := retentionTargets(cfg, current)
	if len(targets) != 2 {
		t.Fatalf("expected two targets, got %d", len(targets))
	}
	if targets[0].Exclude[0] != current {
		t.Fatalf("expected current log excluded, got %v", targets[0].Exclude)
	}
	if targets[1].Dir != filepath.Join(cfg.Paths.LogDir, "forge") {
		t.Fatalf("expected forge run logs targeted, got %q", targets[1].Dir)
	}
}

func TestBuildServerServesCatalogue(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("secret"))
	st := testsupport.MustOpenStore(t, cfg)

	server, err := buildServer(context.Background(), cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("buildServer: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected token to be enforced, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"clothes":0`) {
		t.Fatalf("unexpected status response %d %s", rec.Code, rec.Body.String())
	}
}

func TestServeFailsWhenAnotherInstanceHoldsLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	held := flock.New(daemon.LockPath(cfg))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("acquire lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if code := serve(ctx, cfg, logging.NewNop()); code != 1 {
		t.Fatalf("expected exit code 1 while locked, got %d", code)
	}
}

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPrettyHandlerFoldsSubjectIntoHeader(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	ctx := WithRunID(context.Background(), "0123456789abcdef")
	ctx = WithIteration(ctx, 2)
	ctx = WithStep(ctx, "review")
	WithContext(ctx, NewComponentLogger(logger, "forge")).Info("reviewer finished", String("reviewer", "fixes"))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one field line, got %q", out)
	}
	header := lines[0]
	for _, want := range []string{"INFO", "[forge]", "run 01234567", "iter 2", "review", "reviewer finished"} {
		if !strings.Contains(header, want) {
			t.Fatalf("header %q missing %q", header, want)
		}
	}
	if strings.Contains(out, "run_id") {
		t.Fatalf("run_id should not be repeated as a field: %q", out)
	}
	if lines[1] != "    - reviewer: fixes" {
		t.Fatalf("unexpected field line %q", lines[1])
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info line should be filtered: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "WARN shown") {
		t.Fatalf("expected warn line, got %q", buf.String())
	}
}

func TestPrettyHandlerDedupesAndQuotes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newPrettyHandler(&buf, new(slog.LevelVar), false)).With("path", "old")
	logger.Info("saved", "path", "new value", slog.Group("http", slog.Int("status", 201)))
	out := buf.String()
	if strings.Contains(out, "old") {
		t.Fatalf("expected later value to win, got %q", out)
	}
	if !strings.Contains(out, `- path: "new value"`) {
		t.Fatalf("expected quoted value, got %q", out)
	}
	if !strings.Contains(out, "- http.status: 201") {
		t.Fatalf("expected grouped key, got %q", out)
	}
}

func TestJSONHandlerRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newJSONHandler(&buf, new(slog.LevelVar), false))
	logger.Warn("upstream slow", Int("status", 429))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	ts, ok := payload["ts"].(string)
	if !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Fatalf("ts not RFC3339: %v", err)
	}
	if payload["status"] != float64(429) {
		t.Fatalf("unexpected status %v", payload["status"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "atelier.log")
	logger, err := New(Options{Level: "debug", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hello")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("unexpected log content %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newJSONHandler(&buf, new(slog.LevelVar), false))
	WarnWithContext(logger, "search failed", "image_search_failed", String(FieldImpact, "no results shown"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload[FieldEventType] != "image_search_failed" {
		t.Fatalf("missing event type: %v", payload)
	}
	if payload[FieldErrorHint] == nil {
		t.Fatalf("missing error hint: %v", payload)
	}
	if payload[FieldImpact] != "no results shown" {
		t.Fatalf("caller impact overwritten: %v", payload)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "atelierd-20200101T000000.log")
	fresh := filepath.Join(dir, "atelierd-20990101T000000.log")
	keep := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, fresh, keep} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{old, keep} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	CleanupOldLogs(NewNop(), 3, RetentionTarget{Dir: dir, Pattern: "atelierd-*.log"})

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{fresh, keep} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
}

package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTeeLoggerWritesToAllHandlers(t *testing.T) {
	var first, second bytes.Buffer
	base := slog.New(newPrettyHandler(&first, new(slog.LevelVar), false))
	extra := newJSONHandler(&second, new(slog.LevelVar), false)

	logger := TeeLogger(base, extra).With(String(FieldComponent, "forge"))
	logger.Info("iteration complete", Int("files", 3))

	if !strings.Contains(first.String(), "iteration complete") {
		t.Fatalf("console handler missing record: %q", first.String())
	}
	if !strings.Contains(second.String(), `"component":"forge"`) {
		t.Fatalf("json handler missing attrs: %q", second.String())
	}
}

func TestFanoutSkipsDisabledHandlers(t *testing.T) {
	var quiet, loud bytes.Buffer
	quietLevel := new(slog.LevelVar)
	quietLevel.Set(slog.LevelError)
	logger := slog.New(newFanoutHandler(
		newPrettyHandler(&quiet, quietLevel, false),
		newPrettyHandler(&loud, new(slog.LevelVar), false),
	))
	logger.Info("only loud")
	if quiet.Len() != 0 {
		t.Fatalf("quiet handler should be empty, got %q", quiet.String())
	}
	if !strings.Contains(loud.String(), "only loud") {
		t.Fatalf("loud handler missing record: %q", loud.String())
	}
}

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected noop handler for empty input")
	}
	single := newPrettyHandler(&bytes.Buffer{}, new(slog.LevelVar), false)
	if newFanoutHandler(nil, single) != single {
		t.Fatal("expected single handler to be returned directly")
	}
}

func TestNewFileHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	handler, closeFn, err := NewFileHandler(path, "info")
	if err != nil {
		t.Fatalf("NewFileHandler: %v", err)
	}
	slog.New(handler).Info("generated", String(FieldStep, "generate"))
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"step":"generate"`) {
		t.Fatalf("unexpected file content %q", data)
	}
}

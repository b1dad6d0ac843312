package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

// setupBackend routes console output to a buffer and restores the global
// backend afterwards.
func setupBackend(t *testing.T, cfg Config) *bytes.Buffer {
	t.Helper()

	orig := backend.Load()
	origPath := logPath.Load()
	t.Cleanup(func() {
		backend.Store(orig)
		logPath.Store(origPath)
	})

	var buf bytes.Buffer
	if err := InitWithWriter(cfg, zapcore.AddSync(&buf)); err != nil {
		t.Fatalf("InitWithWriter failed: %v", err)
	}
	return &buf
}

func TestLoggerFormatting(t *testing.T) {
	buf := setupBackend(t, Config{Level: "debug", Format: "json"})

	logger := NewLogger("executor")
	logger.Debugf("Debug message")
	logger.Infof("Info message %d", 123)
	logger.Warnf("Warning message")
	logger.Errorf("Error message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 log lines, got %d:\n%s", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "Info message 123" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v", entry["level"])
	}
	if entry["logger"] != "executor" {
		t.Errorf("logger = %v", entry["logger"])
	}
	if entry["session"] != GetSessionID() {
		t.Errorf("session = %v, want %s", entry["session"], GetSessionID())
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	buf := setupBackend(t, Config{Level: "warn", Format: "json"})

	logger := NewLogger("session")
	logger.Debugf("hidden")
	logger.Infof("hidden")
	logger.Warnf("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below warn were written:\n%s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing:\n%s", out)
	}
}

func TestInvalidLevel(t *testing.T) {
	orig := backend.Load()
	defer backend.Store(orig)

	if err := InitWithWriter(Config{Level: "loud"}, zapcore.AddSync(&bytes.Buffer{})); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	setupBackend(t, Config{Dir: dir, Format: "console"})

	logger := NewLogger("agent")
	logger.Infof("written to file")
	if err := Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	path := LogPath()
	if filepath.Dir(path) != dir {
		t.Errorf("log path %q not in %q", path, dir)
	}
	if !strings.HasSuffix(filepath.Base(path), "-webpilot.log") {
		t.Errorf("unexpected log file name %q", filepath.Base(path))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "written to file") {
		t.Errorf("log file missing message:\n%s", content)
	}
}

func TestGetSessionID(t *testing.T) {
	id1 := GetSessionID()
	id2 := GetSessionID()

	if id1 != id2 {
		t.Errorf("Expected consistent session ID, got %q and %q", id1, id2)
	}
	if !strings.Contains(id1, "-") {
		t.Errorf("Expected UUID session ID, got %q", id1)
	}
}

func TestNopAndUninitialized(t *testing.T) {
	orig := backend.Load()
	backend.Store(nil)
	defer backend.Store(orig)

	// Neither may panic.
	NewLogger("early").Infof("dropped")
	Nop().With("step", 1).Errorf("dropped")
}

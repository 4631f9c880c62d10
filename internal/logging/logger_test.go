package logging_test

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

	"vidqueue/internal/logging"
	"vidqueue/internal/services"
)

func TestNewMirrorsRunLogToConsole(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "vidqueue-1.log")
	var terminal bytes.Buffer
	logger, err := logging.New(logging.Options{
		Level:   "info",
		Format:  "json",
		File:    logPath,
		Console: &terminal,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hello from test", logging.String(logging.FieldJobID, "3f2a9c1e-aaaa-bbbb"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello from test"`) || !strings.Contains(string(data), `"job_id":"3f2a9c1e-aaaa-bbbb"`) {
		t.Fatalf("expected json record in log file, got %q", data)
	}
	if !strings.Contains(terminal.String(), "INFO [3f2a9c1e] hello from test") {
		t.Fatalf("expected console line on terminal, got %q", terminal.String())
	}
}

func TestConsoleLoggerFormatsComponentAndJob(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Format: "console",
		Level:  "info",
		File:   logPath,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "queue")
	logger.Info("step started",
		logging.String(logging.FieldJobID, "3f2a9c1e-aaaa-bbbb"),
		logging.String(logging.FieldStep, "encode video"),
	)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	for _, want := range []string{" INFO queue [3f2a9c1e] step started", `step="encode video"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no source location at info level, got %q", line)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{
		Format: "json",
		Level:  "info",
		File:   logPath,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("queue drained", logging.Int("jobs", 2))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "queue drained" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key in %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := services.WithJobID(context.Background(), "job-1")
	ctx = services.WithStep(ctx, "mux")
	logging.WithContext(ctx, base).Info("running")

	out := buf.String()
	if !strings.Contains(out, `"job_id":"job-1"`) || !strings.Contains(out, `"step":"mux"`) {
		t.Fatalf("expected context fields, got %s", out)
	}
}

func TestWarnWithContextFillsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "notification failed", "notification_failed",
		logging.String(logging.FieldImpact, "operator not alerted"))

	out := buf.String()
	for _, want := range []string{`"event_type":"notification_failed"`, `"error_hint"`, `"impact":"operator not alerted"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestPruneRunLogs(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "vidqueue-old.log")
	freshPath := filepath.Join(dir, "vidqueue-new.log")
	keepPath := filepath.Join(dir, "vidqueue-current.log")
	otherPath := filepath.Join(dir, "notes.log")
	for _, p := range []string{oldPath, freshPath, keepPath, otherPath} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, p := range []string{oldPath, keepPath, otherPath} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if removed := logging.PruneRunLogs(logging.NewNop(), dir, "vidqueue-*.log", 3, keepPath); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, p := range []string{freshPath, keepPath, otherPath} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s to remain: %v", p, err)
		}
	}

	if removed := logging.PruneRunLogs(logging.NewNop(), dir, "vidqueue-*.log", 0); removed != 0 {
		t.Fatalf("zero retention should disable pruning, removed %d", removed)
	}
}

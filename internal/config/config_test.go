package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"vidqueue/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("VIDQUEUE_NTFY_TOPIC", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "vidqueue", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}

	wantState := filepath.Join(tempHome, ".local", "share", "vidqueue")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.SocketPath() != filepath.Join(wantState, "vidqueue.sock") {
		t.Fatalf("unexpected socket path %q", cfg.SocketPath())
	}
	if cfg.Tools.VideoEncoder != "x265" {
		t.Fatalf("expected x265 default encoder, got %q", cfg.Tools.VideoEncoder)
	}
	if cfg.ReconcileInterval().Milliseconds() != 500 {
		t.Fatalf("unexpected reconcile interval %s", cfg.ReconcileInterval())
	}
	if cfg.Notifications.NtfyTopic != "" {
		t.Fatalf("expected no ntfy topic, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	content := `
[paths]
state_dir = "~/state"
work_dir = "~/scratch"

[tools]
video_encoder = "DRAPTO"
audio_encoder = "flac"

[notifications]
ntfy_topic = " https://ntfy.example/queue "

[workflow]
stop_poll_interval_ms = 25

[logging]
format = "JSON"
level = "warning"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "state") {
		t.Fatalf("unexpected state dir %q", cfg.Paths.StateDir)
	}
	if cfg.Paths.WorkDir != filepath.Join(tempHome, "scratch") {
		t.Fatalf("unexpected work dir %q", cfg.Paths.WorkDir)
	}
	if cfg.Tools.VideoEncoder != "drapto" {
		t.Fatalf("expected encoder lowercased, got %q", cfg.Tools.VideoEncoder)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/queue" {
		t.Fatalf("expected trimmed topic, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.StopPollInterval().Milliseconds() != 25 {
		t.Fatalf("unexpected stop poll interval %s", cfg.StopPollInterval())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "warn" {
		t.Fatalf("unexpected logging settings %+v", cfg.Logging)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"encoder", "[tools]\nvideo_encoder = \"vp9\"\n", "tools.video_encoder"},
		{"buffer", "[workflow]\nupdate_buffer = 0\n", "workflow.update_buffer must be positive"},
		{"log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"unknown key", "[tools]\nmystery = 1\n", "parse config"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestSampleConfigParsesAndValidates(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if parsed.Workflow.UpdateBuffer != config.Default().Workflow.UpdateBuffer {
		t.Fatalf("sample update_buffer drifted from defaults: %d", parsed.Workflow.UpdateBuffer)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed validation: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.WorkDir, cfg.Paths.OutputDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

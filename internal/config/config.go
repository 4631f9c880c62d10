package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
}

// Tools names the external binaries and encoder settings used by job steps.
type Tools struct {
	FFmpeg           string `toml:"ffmpeg"`
	FFprobe          string `toml:"ffprobe"`
	VSPipe           string `toml:"vspipe"`
	VideoEncoder     string `toml:"video_encoder"`
	VideoQuality     int    `toml:"video_quality"`
	VideoPreset      string `toml:"video_preset"`
	AudioEncoder     string `toml:"audio_encoder"`
	AudioBitrate     string `toml:"audio_bitrate"`
	KeepIntermediate bool   `toml:"keep_intermediate"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobStarted     bool   `toml:"job_started"`
	QueueDrained   bool   `toml:"queue_drained"`
	Errors         bool   `toml:"errors"`
}

// Workflow contains queue timing and buffering.
type Workflow struct {
	ReconcileIntervalMS   int `toml:"reconcile_interval_ms"`
	StopPollIntervalMS    int `toml:"stop_poll_interval_ms"`
	TerminateGraceSeconds int `toml:"terminate_grace_seconds"`
	UpdateBuffer          int `toml:"update_buffer"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// History controls the finished-job ledger.
type History struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// Config encapsulates all configuration values for vidqueue.
//
// Configuration sections by subsystem:
//   - Paths: state, log, scratch and output directories
//   - Tools: external binaries and encoder selection
//   - Notifications: ntfy push notification settings
//   - Workflow: queue reconciliation and stop timing
//   - Logging: log format, level, and retention
//   - History: finished-job ledger
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	History       History       `toml:"history"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vidqueue/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidqueue.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// OutputDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	return nil
}

// SocketPath is where the daemon listens for controller connections.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "vidqueue.sock")
}

// LockPath guards against a second daemon on the same state directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "vidqueued.lock")
}

// PIDPath records the daemon process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "vidqueued.pid")
}

// HistoryPath is the sqlite ledger of finished jobs.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// ReconcileInterval returns the periodic status reconciliation interval.
func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.Workflow.ReconcileIntervalMS) * time.Millisecond
}

// StopPollInterval returns how often Stop checks whether the running tool exited.
func (c *Config) StopPollInterval() time.Duration {
	return time.Duration(c.Workflow.StopPollIntervalMS) * time.Millisecond
}

// TerminateGrace returns how long Stop waits after SIGTERM before SIGKILL.
func (c *Config) TerminateGrace() time.Duration {
	return time.Duration(c.Workflow.TerminateGraceSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

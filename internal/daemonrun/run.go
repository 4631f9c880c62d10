package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"vidqueue/internal/config"
	"vidqueue/internal/daemon"
	"vidqueue/internal/deps"
	"vidqueue/internal/ipc"
	"vidqueue/internal/logging"
	"vidqueue/internal/logs"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Foreground mirrors log output to stdout in addition to the run log.
	Foreground bool
	// DaemonOptions are passed through to daemon.New.
	DaemonOptions []daemon.Option
}

// Run starts the vidqueue daemon and blocks until the context is canceled,
// SIGINT or SIGTERM arrives, or a client issues the Shutdown RPC.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("vidqueue-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logOpts := logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		File:        logPath,
		Development: opts.Development,
	}
	if opts.Foreground {
		logOpts.Console = os.Stdout
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update vidqueue.log link: %v\n", err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, "vidqueue-*.log", cfg.Logging.RetentionDays, logPath)
	logDependencySnapshot(logger, cfg)

	d, err := daemon.New(cfg, logger, opts.DaemonOptions...)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	// The lock is taken before the socket is touched so a second daemon
	// cannot replace a live one's socket.
	if err := d.Start(signalCtx); err != nil {
		_ = d.Close()
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return err
		}
		return fmt.Errorf("start daemon: %w", err)
	}

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		_ = d.Close()
		return fmt.Errorf("write pid file: %w", err)
	}
	// The pid file outlives the queue so controllers waiting on it see
	// in-flight tools terminated first.
	defer func() {
		_ = d.Close()
		_ = os.Remove(pidPath)
	}()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger, cancel)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	logger.Info("vidqueue daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("socket", cfg.SocketPath()),
		logging.String("log_path", logPath),
		logging.Int("pid", os.Getpid()),
	)

	<-signalCtx.Done()
	logger.Info("vidqueue daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_stopping"),
	)
	return nil
}

// ensureCurrentLogPointer points vidqueue.log at the active run log.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logs.CurrentName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// ReadPID returns the pid recorded by a running daemon.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file %s: %w", path, err)
	}
	return pid, nil
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		key := strings.ToLower(status.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Path),
		)
	}
	attrs = append(attrs,
		logging.String("video_encoder", cfg.Tools.VideoEncoder),
		logging.String("audio_encoder", cfg.Tools.AudioEncoder),
		logging.Bool("ntfy_configured", cfg.Notifications.NtfyTopic != ""),
		logging.Bool("history_enabled", cfg.History.Enabled),
	)
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}

package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"vidqueue/internal/config"
	"vidqueue/internal/deps"
	"vidqueue/internal/ipc"
)

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

const pollInterval = 100 * time.Millisecond

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	ShutdownAcknowledged bool
	ForcedKill           bool
	PID                  int
}

// Launch starts a detached `vidqueue daemon run` process in its own session.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon", "run"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for IPC socket availability and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(pollInterval)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon unless one already answers on socketPath.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	state := StartStateAlreadyRunning
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if !isDaemonUnavailable(err) {
			return StartResult{}, err
		}
		if launchErr := Launch(executablePath, opts); launchErr != nil {
			return StartResult{}, launchErr
		}
		client, err = WaitForClient(socketPath, waitTimeout)
		if err != nil {
			return StartResult{}, err
		}
		state = StartStateStarted
	}
	defer client.Close()

	result := StartResult{State: state}
	if status, err := client.Status(); err == nil && status != nil {
		result.PID = status.PID
	}
	return result, nil
}

// WaitForShutdown waits for the daemon socket to stop answering and, when
// pidPath is set, for the daemon to remove its pid file.
func WaitForShutdown(socketPath, pidPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			_ = client.Close()
		} else if pidPath == "" || !fileExists(pidPath) {
			return nil
		}
		time.Sleep(pollInterval)
	}
	return fmt.Errorf("daemon did not stop within %s", timeout)
}

// StopAndTerminate asks the daemon to shut down and force-kills the process
// if it is still answering after gracePeriod.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	result := StopResult{}
	if status, statusErr := client.Status(); statusErr == nil && status != nil {
		result.PID = status.PID
	}
	resp, err := client.Shutdown()
	_ = client.Close()
	if err != nil {
		return StopResult{}, err
	}
	result.ShutdownAcknowledged = resp != nil && resp.Accepted

	pidPath := ""
	if cfg != nil {
		pidPath = cfg.PIDPath()
	}
	if err := WaitForShutdown(socketPath, pidPath, gracePeriod); err == nil {
		return result, nil
	}

	killed, killErr := ForceKillProcess(pidPath, result.PID)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", killErr)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killed
	return result, nil
}

// ForceKillProcess sends SIGKILL to the daemon recorded in pidPath, falling
// back to fallbackPID when the file is missing.
func ForceKillProcess(pidPath string, fallbackPID int) (int, error) {
	pid := fallbackPID
	if pidPath != "" {
		data, err := os.ReadFile(pidPath)
		if err == nil {
			if parsed, parseErr := strconv.Atoi(strings.TrimSpace(string(data))); parseErr == nil && parsed > 0 {
				pid = parsed
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
		}
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if pidPath != "" {
		if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
		}
	}
	return pid, nil
}

// DependencySummary aggregates dependency readiness for status output.
type DependencySummary struct {
	Total           int
	Available       int
	MissingRequired int
	MissingOptional int
	Severity        string
	Detail          string
}

// Snapshot is what `vidqueue status` renders.
type Snapshot struct {
	Reachable    bool
	Status       ipc.StatusResponse
	Dependencies []ipc.DependencyStatus
	Summary      DependencySummary
}

// BuildStatusSnapshot asks the daemon for status, falling back to a local
// dependency check when it is not reachable.
func BuildStatusSnapshot(socketPath string, cfg *config.Config) (Snapshot, error) {
	if cfg == nil {
		return Snapshot{}, errors.New("configuration not available")
	}
	snap := Snapshot{}
	client, err := ipc.Dial(socketPath)
	if err == nil {
		defer client.Close()
		resp, statusErr := client.Status()
		if statusErr != nil {
			return Snapshot{}, statusErr
		}
		if resp != nil {
			snap.Reachable = true
			snap.Status = *resp
		}
	} else if !isDaemonUnavailable(err) {
		return Snapshot{}, err
	}

	snap.Dependencies = snap.Status.Dependencies
	if len(snap.Dependencies) == 0 {
		snap.Dependencies = ResolveDependencies(cfg)
	}
	snap.Summary = BuildDependencySummary(snap.Dependencies)
	return snap, nil
}

// ResolveDependencies checks external tools locally.
func ResolveDependencies(cfg *config.Config) []ipc.DependencyStatus {
	if cfg == nil {
		return nil
	}
	checks := deps.CheckBinaries(deps.Requirements(cfg))
	statuses := make([]ipc.DependencyStatus, 0, len(checks))
	for _, check := range checks {
		statuses = append(statuses, ipc.DependencyStatus{
			Name:        check.Name,
			Command:     check.Command,
			Description: check.Description,
			Optional:    check.Optional,
			Available:   check.Available,
			Detail:      check.Detail,
		})
	}
	return statuses
}

// BuildDependencySummary computes aggregate dependency readiness.
func BuildDependencySummary(statuses []ipc.DependencyStatus) DependencySummary {
	if len(statuses) == 0 {
		return DependencySummary{
			Severity: "info",
			Detail:   "No dependency checks configured",
		}
	}

	missingRequired := 0
	missingOptional := 0
	for _, dep := range statuses {
		if dep.Available {
			continue
		}
		if dep.Optional {
			missingOptional++
		} else {
			missingRequired++
		}
	}

	missingCount := missingRequired + missingOptional
	available := len(statuses) - missingCount
	severity := "ok"
	if missingRequired > 0 {
		severity = "error"
	} else if missingOptional > 0 {
		severity = "warn"
	}
	detail := fmt.Sprintf("%d/%d available (missing: %d required, %d optional)", available, len(statuses), missingRequired, missingOptional)
	if missingCount == 0 {
		detail = fmt.Sprintf("%d/%d available", available, len(statuses))
	}

	return DependencySummary{
		Total:           len(statuses),
		Available:       available,
		MissingRequired: missingRequired,
		MissingOptional: missingOptional,
		Severity:        severity,
		Detail:          detail,
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

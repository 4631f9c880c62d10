package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"vidqueue/internal/config"
	"vidqueue/internal/deps"
	"vidqueue/internal/history"
	"vidqueue/internal/logging"
	"vidqueue/internal/mainloop"
	"vidqueue/internal/notifications"
	"vidqueue/internal/proc"
	"vidqueue/internal/queue"
	"vidqueue/internal/staging"
	"vidqueue/internal/transcode"
)

var (
	// ErrAlreadyRunning reports a second daemon on the same state directory.
	ErrAlreadyRunning = errors.New("another vidqueue daemon is already running")
	// ErrNotRunning is returned by queue operations before Start.
	ErrNotRunning = errors.New("daemon not running")
	// ErrHistoryDisabled is returned by History when history.enabled is false.
	ErrHistoryDisabled = errors.New("history disabled")
)

const pruneInterval = 24 * time.Hour

var sourceExtensions = map[string]struct{}{
	".mkv":  {},
	".mp4":  {},
	".m4v":  {},
	".mov":  {},
	".avi":  {},
	".webm": {},
	".ts":   {},
	".m2ts": {},
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithNotifier replaces the ntfy service built from config.
func WithNotifier(n notifications.Service) Option {
	return func(d *Daemon) {
		if n != nil {
			d.notifier = n
		}
	}
}

// WithPlannerOptions passes options through to the transcode planner.
func WithPlannerOptions(opts ...transcode.PlannerOption) Option {
	return func(d *Daemon) {
		d.plannerOpts = append(d.plannerOpts, opts...)
	}
}

// Daemon coordinates the queue and enforces single-instance execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	loop        *mainloop.Loop
	sched       *queue.Scheduler
	tracker     *proc.Tracker
	planner     *transcode.Planner
	plannerOpts []transcode.PlannerOption
	history     *history.Store
	notifier    notifications.Service
	logPath     string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	QueueIdle    bool
	Jobs         int
	JobCounts    map[string]int
	Activity     string
	Dependencies []deps.Status
	LockPath     string
	SocketPath   string
	HistoryPath  string
	LogPath      string
}

// AddResult reports the outcome for one submitted source.
type AddResult struct {
	Source string
	JobID  string
	Steps  int
	Err    error
}

// New constructs a daemon. The history store, when enabled, is opened
// immediately so schema problems surface before the lock is taken.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		logPath:  filepath.Join(cfg.Paths.LogDir, "vidqueue.log"),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.notifier == nil {
		d.notifier = notifications.NewService(cfg)
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		d.history = store
	}

	d.loop = mainloop.New(cfg.Workflow.UpdateBuffer, logger)
	d.tracker = proc.NewTracker(cfg.StopPollInterval(), cfg.TerminateGrace(), logger)
	runner := proc.NewRunner(d.tracker, logger)
	d.planner = transcode.NewPlanner(cfg, runner, d.tracker,
		append([]transcode.PlannerOption{transcode.WithLogger(logger)}, d.plannerOpts...)...)

	schedOpts := []queue.Option{
		queue.WithObserver(newLogObserver(logger)),
		queue.WithNotifier(d.notifier),
		queue.WithTerminator(d.tracker),
		queue.WithLogger(logger),
		queue.WithReconcileInterval(cfg.ReconcileInterval()),
	}
	if d.history != nil {
		schedOpts = append(schedOpts, queue.WithLedger(d.history))
	}
	d.sched = queue.New(d.loop, schedOpts...)
	return d, nil
}

// Start acquires the daemon lock and launches the main loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	if !d.cfg.Tools.KeepIntermediate {
		// Nothing is queued yet, so every work directory is a leftover.
		cleanup := staging.CleanOrphaned(ctx, d.cfg.Paths.WorkDir, nil, d.logger)
		if len(cleanup.Removed) > 0 || len(cleanup.Errors) > 0 {
			d.logger.Info("work directory cleanup finished",
				logging.Int("removed", len(cleanup.Removed)),
				logging.Int("errors", len(cleanup.Errors)),
				logging.String(logging.FieldEventType, "workdir_cleanup_summary"),
			)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		_ = d.loop.Run(runCtx)
	}()
	go func() {
		defer d.wg.Done()
		_ = d.sched.Run(runCtx)
	}()
	if d.history != nil && d.cfg.History.RetentionDays > 0 {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.pruneHistory(runCtx)
		}()
	}

	d.running.Store(true)
	d.logger.Info("vidqueue daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop hard-stops the queue, shuts the worker down and releases the lock.
// Jobs are not persisted.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), d.cfg.TerminateGrace()+5*time.Second)
	if err := d.StopQueue(stopCtx); err != nil {
		logging.WarnWithContext(d.logger, "queue stop during shutdown failed", "daemon_stop_queue_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "a tool may still be running; check for orphaned encoder processes"),
			logging.String(logging.FieldImpact, "running step may not have been terminated"),
		)
	}
	cancel()

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.sched.Close()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if the next start is refused"),
		)
	}
	d.running.Store(false)
	d.logger.Info("vidqueue daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	d.sched.Close()
	if d.history != nil {
		return d.history.Close()
	}
	return nil
}

// Running reports whether Start has succeeded and Stop has not run.
func (d *Daemon) Running() bool { return d.running.Load() }

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string { return d.logPath }

// do runs fn on the main loop.
func (d *Daemon) do(ctx context.Context, fn func(s *queue.Scheduler) error) error {
	if !d.running.Load() {
		return ErrNotRunning
	}
	var opErr error
	if err := d.loop.Do(ctx, func() { opErr = fn(d.sched) }); err != nil {
		return err
	}
	return opErr
}

// AddFiles plans a job for every source and submits it. Sources are handled
// independently; a failure on one is reported in its result and does not
// stop the rest.
func (d *Daemon) AddFiles(ctx context.Context, sources []string) ([]AddResult, error) {
	if !d.running.Load() {
		return nil, ErrNotRunning
	}
	if len(sources) == 0 {
		return nil, errors.New("at least one source path is required")
	}
	results := make([]AddResult, 0, len(sources))
	for _, source := range sources {
		result := AddResult{Source: strings.TrimSpace(source)}
		result.JobID, result.Steps, result.Err = d.addFile(ctx, result.Source)
		if result.Err != nil {
			logging.WarnWithContext(d.logger, "source rejected", "source_rejected",
				logging.String("source", result.Source),
				logging.Error(result.Err),
				logging.String(logging.FieldErrorHint, "check the path exists and ffprobe can read it"),
				logging.String(logging.FieldImpact, "no job created for this source"),
			)
		}
		results = append(results, result)
	}
	return results, nil
}

func (d *Daemon) addFile(ctx context.Context, source string) (string, int, error) {
	if source == "" {
		return "", 0, errors.New("source path is required")
	}
	ext := strings.ToLower(filepath.Ext(source))
	if _, ok := sourceExtensions[ext]; !ok {
		return "", 0, fmt.Errorf("unsupported file extension %q", ext)
	}
	plan, err := d.planner.Plan(ctx, source)
	if err != nil {
		return "", 0, err
	}
	jobID, steps, err := transcode.Enqueue(ctx, d.loop, d.sched, plan)
	if err != nil {
		return jobID, 0, err
	}
	d.logger.Info("job queued",
		logging.String(logging.FieldJobID, jobID),
		logging.String("source", plan.Source),
		logging.Int("steps", steps),
		logging.String(logging.FieldEventType, "job_queued"),
	)
	return jobID, steps, nil
}

// StartQueue opens the gate.
func (d *Daemon) StartQueue(ctx context.Context) error {
	return d.do(ctx, func(s *queue.Scheduler) error { return s.Start() })
}

// StopQueue hard-stops the queue. It blocks until the running tool exits.
func (d *Daemon) StopQueue(ctx context.Context) error {
	return d.do(ctx, func(s *queue.Scheduler) error { return s.Stop(ctx) })
}

// Delete removes a job. A non-negative step selects a step, which resolves
// to its job.
func (d *Daemon) Delete(ctx context.Context, jobID string, step int) error {
	return d.do(ctx, func(s *queue.Scheduler) error {
		ref, err := s.Lookup(jobID, step)
		if err != nil {
			return err
		}
		return s.Delete(ref)
	})
}

// Clear empties an idle queue.
func (d *Daemon) Clear(ctx context.Context) error {
	return d.do(ctx, func(s *queue.Scheduler) error { return s.Clear() })
}

// Snapshot returns a copy of the job tree and whether the queue is idle.
func (d *Daemon) Snapshot(ctx context.Context) ([]queue.JobView, bool, error) {
	var (
		jobs []queue.JobView
		idle bool
	)
	err := d.do(ctx, func(s *queue.Scheduler) error {
		jobs = s.Snapshot()
		idle = s.Idle()
		return nil
	})
	return jobs, idle, err
}

// History returns up to limit finished jobs, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.Run, error) {
	if d.history == nil {
		return nil, ErrHistoryDisabled
	}
	return d.history.List(ctx, limit)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		QueueIdle:    true,
		JobCounts:    map[string]int{},
		Dependencies: deps.CheckBinaries(deps.Requirements(d.cfg)),
		LockPath:     d.lockPath,
		SocketPath:   d.cfg.SocketPath(),
		LogPath:      d.logPath,
	}
	if d.history != nil {
		status.HistoryPath = d.history.Path()
	}
	if name, ok := d.tracker.Current(); ok {
		status.Activity = name
	}
	jobs, idle, err := d.Snapshot(ctx)
	if err != nil {
		return status
	}
	status.QueueIdle = idle
	status.Jobs = len(jobs)
	for _, job := range jobs {
		status.JobCounts[job.Status.String()]++
	}
	return status
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

func (d *Daemon) pruneHistory(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		cutoff := time.Now().AddDate(0, 0, -d.cfg.History.RetentionDays)
		removed, err := d.history.Prune(ctx, cutoff)
		switch {
		case err != nil && ctx.Err() == nil:
			logging.WarnWithContext(d.logger, "history prune failed", "history_prune_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the history database is writable"),
				logging.String(logging.FieldImpact, "old history rows are kept"),
			)
		case removed > 0:
			d.logger.Info("history pruned", logging.Int64("removed", removed))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

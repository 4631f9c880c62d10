package proc

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"vidqueue/internal/logging"
)

// Activity is the registration of one in-flight process or in-process task.
type Activity struct {
	tracker *Tracker
	name    string
	pid     int
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Name returns the tool or task name.
func (a *Activity) Name() string { return a.name }

// Release marks the activity finished and frees the tracker slot.
func (a *Activity) Release() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		close(a.done)
		a.tracker.clear(a)
	})
}

func (a *Activity) exited() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

// Tracker holds at most one in-flight activity.
type Tracker struct {
	mu      sync.Mutex
	current *Activity
	poll    time.Duration
	grace   time.Duration
	logger  *slog.Logger
}

// NewTracker builds a tracker that polls every poll interval while stopping
// and escalates to SIGKILL once grace has elapsed.
func NewTracker(poll, grace time.Duration, logger *slog.Logger) *Tracker {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	if grace <= 0 {
		grace = 10 * time.Second
	}
	return &Tracker{
		poll:   poll,
		grace:  grace,
		logger: logging.NewComponentLogger(logger, "proc"),
	}
}

// TrackProcess registers a running process group led by pid.
func (t *Tracker) TrackProcess(name string, pid int) (*Activity, error) {
	return t.register(&Activity{name: name, pid: pid})
}

// TrackFunc registers an in-process task stopped through cancel.
func (t *Tracker) TrackFunc(name string, cancel context.CancelFunc) (*Activity, error) {
	return t.register(&Activity{name: name, cancel: cancel})
}

func (t *Tracker) register(a *Activity) (*Activity, error) {
	a.tracker = t
	a.done = make(chan struct{})
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		return nil, ErrBusy
	}
	t.current = a
	return a, nil
}

func (t *Tracker) clear(a *Activity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == a {
		t.current = nil
	}
}

// Current returns the name of the in-flight activity, if any.
func (t *Tracker) Current() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return "", false
	}
	return t.current.name, true
}

// Terminate asks the in-flight activity to stop and polls until it has
// exited. Processes receive SIGTERM, then SIGKILL after the grace period.
func (t *Tracker) Terminate(ctx context.Context) error {
	t.mu.Lock()
	a := t.current
	t.mu.Unlock()
	if a == nil {
		return ErrNoActivity
	}

	t.logger.Info("terminating activity",
		logging.String("activity", a.name),
		logging.Int("pid", a.pid),
		logging.String(logging.FieldEventType, "activity_terminate"),
	)
	t.signal(a, unix.SIGTERM)

	started := time.Now()
	killed := false
	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()
	for !a.exited() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if !killed && time.Since(started) >= t.grace {
			logging.WarnWithContext(t.logger, "activity ignored SIGTERM; killing", "activity_kill",
				logging.String("activity", a.name),
				logging.Duration("grace", t.grace),
				logging.String(logging.FieldErrorHint, "the tool may leave partial output behind"),
				logging.String(logging.FieldImpact, "step marked failed"),
			)
			t.signal(a, unix.SIGKILL)
			killed = true
		}
	}
	t.logger.Info("activity stopped",
		logging.String("activity", a.name),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (t *Tracker) signal(a *Activity, sig unix.Signal) {
	if a.pid > 0 {
		if err := unix.Kill(-a.pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
			t.logger.Debug("signal process group failed", logging.Int("pid", a.pid), logging.Error(err))
		}
		return
	}
	if a.cancel != nil {
		a.cancel()
	}
}

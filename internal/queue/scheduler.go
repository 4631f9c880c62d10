package queue

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"vidqueue/internal/gate"
	"vidqueue/internal/history"
	"vidqueue/internal/jobtree"
	"vidqueue/internal/logging"
	"vidqueue/internal/mainloop"
	"vidqueue/internal/notifications"
	"vidqueue/internal/proc"
	"vidqueue/internal/services"
	"vidqueue/internal/worker"
)

const noticeBuffer = 64

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithObserver registers the status observer.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithNotifier sets the notification service.
func WithNotifier(n notifications.Service) Option {
	return func(s *Scheduler) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLedger records every finished job.
func WithLedger(l Ledger) Option {
	return func(s *Scheduler) {
		s.ledger = l
	}
}

// WithTerminator sets what Stop uses to end the in-flight activity.
func WithTerminator(t Terminator) Option {
	return func(s *Scheduler) {
		s.terminator = t
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithReconcileInterval sets how often Run schedules a reconciliation pass.
func WithReconcileInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

type waitEntry struct {
	job    *jobtree.Job
	handle *worker.Handle
}

// Scheduler owns the job tree, the gate and the single worker.
//
// Every method except Run and Close must be called on the main loop
// goroutine. The worker never touches the tree; it only drives handles, and
// reconciliation projects handle state into statuses on the loop.
type Scheduler struct {
	loop       *mainloop.Loop
	exec       *worker.Executor
	gate       *gate.Gate
	tree       *jobtree.Tree
	waitlist   []waitEntry
	idle       bool
	announced  map[*jobtree.Job]bool
	finished   int
	observer   Observer
	notifier   notifications.Service
	ledger     Ledger
	terminator Terminator
	logger     *slog.Logger
	interval   time.Duration
	notices    chan func(context.Context)

	inflightMu     sync.Mutex
	inflightCancel context.CancelFunc
}

// New builds a scheduler bound to loop. The queue starts idle.
func New(loop *mainloop.Loop, opts ...Option) *Scheduler {
	s := &Scheduler{
		loop:      loop,
		gate:      gate.New(),
		tree:      jobtree.NewTree(),
		idle:      true,
		announced: make(map[*jobtree.Job]bool),
		observer:  noopObserver{},
		logger:    logging.NewNop(),
		interval:  500 * time.Millisecond,
		notices:   make(chan func(context.Context), noticeBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "queue")
	s.exec = worker.New(
		worker.WithHook(s.onTransition),
		worker.WithLogger(s.logger),
	)
	return s
}

// Run delivers notifications and schedules periodic reconciliation until ctx
// ends. It runs on its own goroutine, never on the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case deliver := <-s.notices:
			deliver(ctx)
		case <-ticker.C:
			s.loop.TryPost(s.Reconcile)
		}
	}
}

// Close shuts the worker down, cancelling queued units and waiting for the
// in-flight one. Stop the queue first to end running tools promptly.
func (s *Scheduler) Close() {
	s.cancelInflight()
	s.exec.Close()
}

func (s *Scheduler) onTransition(*worker.Handle, worker.State) {
	s.loop.TryPost(s.Reconcile)
}

// Idle reports whether the queue is paused.
func (s *Scheduler) Idle() bool { return s.idle }

// Len returns the number of jobs in the tree.
func (s *Scheduler) Len() int { return s.tree.Len() }

// Tree exposes the job tree for navigation. Callers must stay on the loop.
func (s *Scheduler) Tree() *jobtree.Tree { return s.tree }

// NewJob appends an empty job for name.
func (s *Scheduler) NewJob(name string) *jobtree.Job {
	job := s.tree.Append(name)
	s.logger.Debug("job created",
		logging.String(logging.FieldJobID, job.ID()),
		logging.String("name", name),
	)
	return job
}

// SubmitStep appends a step to job. A gate-wait unit is queued first, so the
// worker pauses in front of the step while the queue is idle.
func (s *Scheduler) SubmitStep(job *jobtree.Job, label string, payload Payload) (*jobtree.Step, error) {
	if s.tree.Index(job) < 0 {
		return nil, ErrUnknownRef
	}
	if job.Status().Terminal() {
		return nil, ErrJobFinished
	}

	step := jobtree.NewStep(label)
	prev := job.LastHandle()

	wait := s.exec.Submit(func(ctx context.Context) error {
		return s.gate.Wait(ctx)
	})
	s.waitlist = append(s.waitlist, waitEntry{job: job, handle: wait})

	handle := s.exec.Submit(s.wrap(job.ID(), label, step, prev, payload))
	job.Attach(step, handle)
	s.Reconcile()
	return step, nil
}

// wrap adapts a payload to a unit of work. The returned func runs on the
// worker and must not touch the tree; it reaches the step only through
// closures posted to the loop.
func (s *Scheduler) wrap(jobID, label string, step *jobtree.Step, prev *worker.Handle, payload Payload) worker.Func {
	return func(ctx context.Context) error {
		if prev != nil {
			switch prev.State() {
			case worker.StateFailed, worker.StateCancelled:
				return ErrPredecessorFailed
			}
		}
		if payload == nil {
			return nil
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		s.setInflight(cancel)
		defer s.setInflight(nil)

		ctx = services.WithJobID(ctx, jobID)
		ctx = services.WithStep(ctx, label)
		logger := logging.WithContext(ctx, s.logger)
		logger.Info("step started", logging.String(logging.FieldEventType, "step_started"))

		started := time.Now()
		progress := func(fraction float64) {
			s.loop.TryPost(func() {
				if step.SetProgress(fraction) {
					s.observer.ProgressChanged(step, step.Progress())
				}
			})
		}
		err := payload(ctx, progress)
		elapsed := time.Since(started)
		if err != nil {
			logger.Error("step failed",
				logging.Error(err),
				logging.Duration("elapsed", elapsed),
				logging.String(logging.FieldEventType, "step_failed"),
				logging.String(logging.FieldErrorHint, "inspect the tool output in the daemon log"),
				logging.String(logging.FieldImpact, "job marked failed; later steps skipped"),
			)
			return err
		}
		logger.Info("step finished",
			logging.Duration("elapsed", elapsed),
			logging.String(logging.FieldEventType, "step_finished"),
		)
		return nil
	}
}

func (s *Scheduler) setInflight(cancel context.CancelFunc) {
	s.inflightMu.Lock()
	s.inflightCancel = cancel
	s.inflightMu.Unlock()
}

func (s *Scheduler) cancelInflight() {
	s.inflightMu.Lock()
	cancel := s.inflightCancel
	s.inflightMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Start opens the gate. It is a no-op while already running.
func (s *Scheduler) Start() error {
	if s.tree.Len() == 0 {
		return ErrEmptyQueue
	}
	if !s.idle {
		return nil
	}
	s.idle = false
	s.finished = 0
	s.gate.Open()
	s.logger.Info("queue started",
		logging.Int("jobs", s.tree.Len()),
		logging.String(logging.FieldEventType, "queue_started"),
	)
	return nil
}

// Stop pauses the queue and hard-stops the in-flight step: the running tool
// is terminated and Stop blocks until it exits. Every step that has not
// finished is then marked failed and its job with it. Stopped jobs are never
// resumed.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.idle = true
	s.gate.Close()

	if s.terminator != nil {
		if err := s.terminator.Terminate(ctx); err != nil && !errors.Is(err, proc.ErrNoActivity) {
			return fmt.Errorf("terminate running step: %w", err)
		}
	}
	s.cancelInflight()

	stopped := 0
	for _, job := range s.tree.Jobs() {
		affected := false
		for _, step := range job.Steps() {
			handle := step.Handle()
			if handle.State() == worker.StateDone {
				continue
			}
			handle.Cancel()
			if step.SetStatus(jobtree.StatusFailed) {
				s.observer.StatusChanged(step, jobtree.StatusFailed)
			}
			affected = true
		}
		if affected && job.SetStatus(jobtree.StatusFailed) {
			stopped++
			s.observer.StatusChanged(job, jobtree.StatusFailed)
			s.record(job, services.Wrap(services.ErrInterrupted, "", "", "queue stopped", nil))
		}
	}
	s.logger.Info("queue stopped",
		logging.Int("jobs_stopped", stopped),
		logging.String(logging.FieldEventType, "queue_stopped"),
	)
	s.Reconcile()
	return nil
}

// Delete removes the job ref belongs to. A step reference resolves to its
// job. Jobs with a running step are refused and left untouched.
func (s *Scheduler) Delete(ref jobtree.Ref) error {
	if ref == nil {
		return ErrUnknownRef
	}
	job := ref.Owner()
	if job == nil || s.tree.Index(job) < 0 {
		return ErrUnknownRef
	}
	if job.Running() {
		return ErrJobRunning
	}
	for _, step := range job.Steps() {
		handle := step.Handle()
		if handle.Cancel() || handle.Done() {
			continue
		}
		// The worker picked the step up after the running check.
		return ErrJobRunning
	}
	kept := s.waitlist[:0]
	for _, entry := range s.waitlist {
		if entry.job == job {
			entry.handle.Cancel()
			continue
		}
		kept = append(kept, entry)
	}
	clear(s.waitlist[len(kept):])
	s.waitlist = kept

	s.tree.Remove(job)
	delete(s.announced, job)
	s.logger.Info("job deleted",
		logging.String(logging.FieldJobID, job.ID()),
		logging.String("name", job.Name()),
		logging.String(logging.FieldEventType, "job_deleted"),
	)

	if !s.idle && !s.hasPendingWork() {
		s.pause()
	}
	return nil
}

// Clear cancels everything and empties the tree. Only allowed while idle.
func (s *Scheduler) Clear() error {
	if !s.idle {
		return ErrNotIdle
	}
	jobs := s.tree.Jobs()
	for _, job := range jobs {
		if job.Running() {
			return ErrJobRunning
		}
	}
	for _, job := range jobs {
		for _, step := range job.Steps() {
			step.Handle().Cancel()
		}
	}
	for _, entry := range s.waitlist {
		entry.handle.Cancel()
	}
	s.waitlist = nil
	s.tree.Clear()
	clear(s.announced)
	s.logger.Info("queue cleared",
		logging.Int("jobs", len(jobs)),
		logging.String(logging.FieldEventType, "queue_cleared"),
	)
	return nil
}

// Lookup resolves a job id and optional step index to a tree reference.
// A negative step selects the job itself.
func (s *Scheduler) Lookup(jobID string, step int) (jobtree.Ref, error) {
	job := s.tree.Find(jobID)
	if job == nil {
		return nil, ErrUnknownRef
	}
	if step < 0 {
		return job, nil
	}
	st := job.Step(step)
	if st == nil {
		return nil, fmt.Errorf("%w: job %s has no step %d", ErrUnknownRef, jobID, step)
	}
	return st, nil
}

// Reconcile projects handle states into step statuses, derives job statuses
// and reports every change. It also detects when the queue has drained.
func (s *Scheduler) Reconcile() {
	states := s.observe()
	for _, job := range s.tree.Jobs() {
		s.reconcileJob(job, states)
	}

	kept := s.waitlist[:0]
	for _, entry := range s.waitlist {
		if !entry.handle.Done() {
			kept = append(kept, entry)
		}
	}
	clear(s.waitlist[len(kept):])
	s.waitlist = kept

	if s.idle || s.hasPendingWork() {
		return
	}
	finished := s.finished
	s.pause()
	if finished == 0 {
		return
	}
	s.logger.Info("queue drained",
		logging.Int("jobs_finished", finished),
		logging.String(logging.FieldEventType, "queue_drained"),
	)
	s.publish(notifications.EventQueueDrained, notifications.Payload{"count": strconv.Itoa(finished)})
}

// observe reads every step handle newest first. The worker runs handles in
// submission order, so a step seen started implies every earlier one was
// already finished when it was read, and at most one step looks running.
func (s *Scheduler) observe() map[*jobtree.Step]worker.State {
	var steps []*jobtree.Step
	for _, job := range s.tree.Jobs() {
		steps = append(steps, job.Steps()...)
	}
	slices.SortFunc(steps, func(a, b *jobtree.Step) int {
		return cmp.Compare(b.Handle().ID(), a.Handle().ID())
	})
	states := make(map[*jobtree.Step]worker.State, len(steps))
	for _, step := range steps {
		states[step] = step.Handle().State()
	}
	return states
}

func (s *Scheduler) reconcileJob(job *jobtree.Job, states map[*jobtree.Step]worker.State) {
	steps := job.Steps()
	started := false
	for _, step := range steps {
		state := states[step]
		next := jobtree.ProjectHandle(state)
		if ran(state, step.Handle()) {
			started = true
			// A step can finish between two passes; it still ran.
			if next.Terminal() && step.SetStatus(jobtree.StatusRunning) {
				s.observer.StatusChanged(step, jobtree.StatusRunning)
			}
		}
		if step.SetStatus(next) {
			s.observer.StatusChanged(step, step.Status())
		}
	}

	derived := job.Derive()
	if derived == jobtree.StatusFailed && !job.Status().Terminal() {
		for _, step := range steps {
			if !step.Handle().Cancel() {
				continue
			}
			if step.SetStatus(jobtree.StatusFailed) {
				s.observer.StatusChanged(step, jobtree.StatusFailed)
			}
		}
	}
	if started && !job.Status().Terminal() {
		if derived.Terminal() && job.SetStatus(jobtree.StatusRunning) {
			s.observer.StatusChanged(job, jobtree.StatusRunning)
		}
		s.announce(job)
	}
	if !job.SetStatus(derived) {
		return
	}
	s.observer.StatusChanged(job, derived)

	switch derived {
	case jobtree.StatusDone:
		s.finished++
		s.logger.Info("job finished",
			logging.String(logging.FieldJobID, job.ID()),
			logging.String("name", job.Name()),
			logging.String(logging.FieldEventType, "job_finished"),
		)
		s.record(job, nil)
	case jobtree.StatusFailed:
		s.finished++
		step, err := failedStep(job)
		label := ""
		if step != nil {
			label = step.Label()
		}
		logging.WarnWithContext(s.logger, "job failed", "job_failed",
			logging.String(logging.FieldJobID, job.ID()),
			logging.String("name", job.Name()),
			logging.String(logging.FieldStep, label),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the step error, then delete and resubmit the job"),
			logging.String(logging.FieldImpact, "job output is incomplete; later jobs still run"),
		)
		payload := notifications.Payload{"name": job.Name(), "step": label}
		if err != nil {
			payload["error"] = err.Error()
		}
		s.publish(notifications.EventJobFailed, payload)
		s.record(job, err)
	}
}

// announce raises the processing notice the first time any step of job is
// picked up by the worker.
func (s *Scheduler) announce(job *jobtree.Job) {
	if s.announced[job] {
		return
	}
	s.announced[job] = true
	s.logger.Info("processing job",
		logging.String(logging.FieldJobID, job.ID()),
		logging.String("name", job.Name()),
		logging.String(logging.FieldEventType, "job_started"),
	)
	s.publish(notifications.EventJobStarted, notifications.Payload{"name": job.Name()})
}

// ran reports whether the worker executed the unit behind handle. Steps
// skipped after an earlier failure never ran.
func ran(state worker.State, handle *worker.Handle) bool {
	switch state {
	case worker.StateRunning, worker.StateDone:
		return true
	case worker.StateFailed:
		return !errors.Is(handle.Err(), ErrPredecessorFailed)
	default:
		return false
	}
}

// failedStep returns the step whose own failure failed the job, preferring a
// real payload error over skipped or cancelled followers.
func failedStep(job *jobtree.Job) (*jobtree.Step, error) {
	var first *jobtree.Step
	for _, step := range job.Steps() {
		if step.Status() != jobtree.StatusFailed {
			continue
		}
		if first == nil {
			first = step
		}
		err := step.Handle().Err()
		if err != nil && !errors.Is(err, ErrPredecessorFailed) {
			return step, err
		}
	}
	return first, nil
}

func (s *Scheduler) hasPendingWork() bool {
	for _, job := range s.tree.Jobs() {
		if job.Step(0) != nil && !job.Status().Terminal() {
			return true
		}
	}
	return false
}

func (s *Scheduler) pause() {
	s.idle = true
	s.finished = 0
	s.gate.Close()
}

func (s *Scheduler) publish(event notifications.Event, payload notifications.Payload) {
	if s.notifier == nil {
		return
	}
	notifier := s.notifier
	s.enqueueNotice(string(event), func(ctx context.Context) {
		if err := notifier.Publish(ctx, event, payload); err != nil {
			logging.WarnWithContext(s.logger, "notification failed", "notification_failed",
				logging.String("event", string(event)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
				logging.String(logging.FieldImpact, "operator was not alerted"),
			)
		}
	})
}

func (s *Scheduler) record(job *jobtree.Job, err error) {
	if s.ledger == nil {
		return
	}
	run := history.Run{
		JobID:       job.ID(),
		Name:        job.Name(),
		Outcome:     history.OutcomeDone,
		Steps:       len(job.Steps()),
		SubmittedAt: job.Submitted(),
		FinishedAt:  time.Now().UTC(),
	}
	if job.Status() == jobtree.StatusFailed {
		run.Outcome = history.OutcomeFailed
		if step, stepErr := failedStep(job); step != nil {
			run.FailedStep = step.Label()
			if err == nil {
				err = stepErr
			}
		}
		run.FailureKind = services.FailureKind(err)
		if err != nil {
			run.ErrorMessage = err.Error()
		}
	}
	ledger := s.ledger
	s.enqueueNotice("history", func(ctx context.Context) {
		if _, err := ledger.Record(ctx, run); err != nil {
			logging.WarnWithContext(s.logger, "history record failed", "history_record_failed",
				logging.String(logging.FieldJobID, run.JobID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the state directory is writable"),
				logging.String(logging.FieldImpact, "job missing from history"),
			)
		}
	})
}

// enqueueNotice hands slow side effects to Run so the loop never blocks on
// network or disk.
func (s *Scheduler) enqueueNotice(kind string, deliver func(context.Context)) {
	select {
	case s.notices <- deliver:
	default:
		logging.WarnWithContext(s.logger, "notice buffer full; dropping", "notice_dropped",
			logging.String("kind", kind),
			logging.String(logging.FieldErrorHint, "notification endpoint may be slow"),
			logging.String(logging.FieldImpact, "one notification or history row lost"),
		)
	}
}

// Package mainloop provides the controller's single-threaded update loop.
//
// Goroutines that must not touch controller-owned state (the worker, process
// output readers) hand closures to the loop instead. The loop applies them one
// at a time, in the order they were posted, so the state they mutate needs no
// locking of its own.
package mainloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"vidqueue/internal/logging"
)

// ErrStopped is returned when posting to a loop that is no longer running.
var ErrStopped = errors.New("main loop stopped")

// Loop drains a bounded channel of closures on one goroutine.
type Loop struct {
	updates chan func()
	stopped chan struct{}
	logger  *slog.Logger

	runOnce  sync.Once
	stopOnce sync.Once
}

// New creates a loop whose queue holds at most size pending closures.
func New(size int, logger *slog.Logger) *Loop {
	if size <= 0 {
		size = 1
	}
	return &Loop{
		updates: make(chan func(), size),
		stopped: make(chan struct{}),
		logger:  logging.NewComponentLogger(logger, "mainloop"),
	}
}

// Run applies posted closures until ctx ends. It may only be called once.
func (l *Loop) Run(ctx context.Context) error {
	err := errors.New("main loop already running")
	l.runOnce.Do(func() {
		err = l.run(ctx)
	})
	return err
}

func (l *Loop) run(ctx context.Context) error {
	defer l.stopOnce.Do(func() { close(l.stopped) })
	for {
		select {
		case fn := <-l.updates:
			l.apply(fn)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Loop) apply(fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("deferred update panicked",
				logging.Any("panic", r),
				logging.String(logging.FieldEventType, "mainloop_panic"),
				logging.String(logging.FieldErrorHint, "inspect the observer or scheduler callback"),
			)
		}
	}()
	fn()
}

// Post queues fn, blocking while the queue is full.
func (l *Loop) Post(ctx context.Context, fn func()) error {
	select {
	case <-l.stopped:
		return ErrStopped
	default:
	}
	select {
	case l.updates <- fn:
		return nil
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPost queues fn without blocking and reports whether it was accepted.
// Callers use it for updates that a later update supersedes, such as progress.
func (l *Loop) TryPost(fn func()) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.updates <- fn:
		return true
	default:
		return false
	}
}

// Do runs fn on the loop and waits for it to return. Calling Do from the loop
// goroutine deadlocks.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	var panicked any
	wrapped := func() {
		defer close(finished)
		defer func() {
			panicked = recover()
		}()
		fn()
	}
	if err := l.Post(ctx, wrapped); err != nil {
		return err
	}
	select {
	case <-finished:
		if panicked != nil {
			return fmt.Errorf("main loop call panicked: %v", panicked)
		}
		return nil
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stopped is closed once Run returns.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}

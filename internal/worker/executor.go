package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"vidqueue/internal/logging"
)

// ErrClosed is returned by handles that were still pending when the executor shut down.
var ErrClosed = errors.New("executor closed")

// Func is a unit of work. The context is cancelled when the executor closes.
type Func func(ctx context.Context) error

// Hook observes handle state transitions. It runs on the goroutine that caused
// the transition (the worker, or the caller of Cancel) and must not block.
type Hook func(h *Handle, state State)

// Option configures an Executor.
type Option func(*Executor)

// WithHook registers a state transition hook.
func WithHook(hook Hook) Option {
	return func(e *Executor) {
		e.hook = hook
	}
}

// WithLogger attaches a logger used for panics and shutdown diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Executor runs submitted units of work on exactly one worker goroutine, in
// submission order. The worker is started by New and lives until Close.
type Executor struct {
	logger *slog.Logger
	hook   Hook

	mu      sync.Mutex
	pending []*Handle
	closed  bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	nextID atomic.Uint64
}

// New starts an executor and its single worker.
func New(opts ...Option) *Executor {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		logger: logging.NewNop(),
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "worker")
	go e.loop()
	return e
}

// Submit enqueues fn behind every previously submitted unit.
func (e *Executor) Submit(fn Func) *Handle {
	h := &Handle{
		id:    e.nextID.Add(1),
		fn:    fn,
		owner: e,
		done:  make(chan struct{}),
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		h.finish(StateCancelled, ErrClosed)
		return h
	}
	e.pending = append(e.pending, h)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return h
}

// Pending reports how many units are queued and not yet picked up by the worker.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Close cancels the worker context, cancels every queued unit and waits for
// the in-flight unit to return.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		<-e.done
		return
	}
	e.closed = true
	queued := e.pending
	e.pending = nil
	e.mu.Unlock()

	e.cancel()
	for _, h := range queued {
		h.Cancel()
	}
	<-e.done
}

func (e *Executor) loop() {
	defer close(e.done)
	for {
		h, ok := e.next()
		if !ok {
			return
		}
		e.run(h)
	}
}

func (e *Executor) next() (*Handle, bool) {
	for {
		e.mu.Lock()
		if len(e.pending) > 0 {
			h := e.pending[0]
			e.pending[0] = nil
			e.pending = e.pending[1:]
			e.mu.Unlock()
			return h, true
		}
		closed := e.closed
		e.mu.Unlock()
		if closed {
			return nil, false
		}
		select {
		case <-e.wake:
		case <-e.ctx.Done():
		}
	}
}

func (e *Executor) run(h *Handle) {
	if !h.begin() {
		return
	}
	err := e.invoke(h)
	if err != nil {
		h.finish(StateFailed, err)
		return
	}
	h.finish(StateDone, nil)
}

func (e *Executor) invoke(h *Handle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unit of work panicked: %v", r)
			e.logger.Error("unit of work panicked",
				logging.Uint64("handle_id", h.id),
				logging.Any("panic", r),
				logging.String(logging.FieldEventType, "worker_panic"),
				logging.String(logging.FieldErrorHint, "inspect the failing step payload"),
			)
		}
	}()
	if h.fn == nil {
		return nil
	}
	return h.fn(e.ctx)
}

func (e *Executor) notify(h *Handle, state State) {
	if e == nil || e.hook == nil {
		return
	}
	e.hook(h, state)
}

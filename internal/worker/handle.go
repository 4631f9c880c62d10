package worker

import (
	"context"
	"sync"
)

// State is the lifecycle position of a Handle.
type State int

const (
	StatePending State = iota
	StateRunning
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state can no longer change.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// Handle tracks one submitted unit of work.
type Handle struct {
	id    uint64
	fn    Func
	owner *Executor

	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}
}

// ID returns the executor-unique identifier of the handle.
func (h *Handle) ID() uint64 { return h.id }

// State returns the current state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Running reports whether the unit is executing right now.
func (h *Handle) Running() bool {
	return h.State() == StateRunning
}

// Done reports whether the unit reached a terminal state, including cancellation.
func (h *Handle) Done() bool {
	return h.State().Terminal()
}

// Err returns the error the unit finished with, if any.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Cancel prevents a pending unit from ever running. It returns false when the
// unit already started or finished; such a unit is left untouched.
func (h *Handle) Cancel() bool {
	h.mu.Lock()
	if h.state != StatePending {
		h.mu.Unlock()
		return false
	}
	h.state = StateCancelled
	close(h.done)
	h.mu.Unlock()
	h.owner.notify(h, StateCancelled)
	return true
}

// Wait blocks until the unit is terminal or ctx ends.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) begin() bool {
	h.mu.Lock()
	if h.state != StatePending {
		h.mu.Unlock()
		return false
	}
	h.state = StateRunning
	h.mu.Unlock()
	h.owner.notify(h, StateRunning)
	return true
}

func (h *Handle) finish(state State, err error) {
	h.mu.Lock()
	if h.state.Terminal() {
		h.mu.Unlock()
		return
	}
	h.state = state
	h.err = err
	close(h.done)
	h.mu.Unlock()
	h.owner.notify(h, state)
}

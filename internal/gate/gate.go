// Package gate implements the run/pause switch the worker consults between
// steps. A closed gate means the queue is idle.
package gate

import (
	"context"
	"sync"
)

// Gate blocks waiters while closed. One goroutine toggles it and one goroutine
// waits on it; other usage patterns work but are not what it is tuned for.
type Gate struct {
	mu   sync.Mutex
	open bool
	ch   chan struct{}
}

// New returns a closed gate.
func New() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Open releases current and future waiters until the next Close.
func (g *Gate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		return
	}
	g.open = true
	close(g.ch)
}

// Close makes subsequent waiters block.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return
	}
	g.open = false
	g.ch = make(chan struct{})
}

// Idle reports whether the gate is closed.
func (g *Gate) Idle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.open
}

// Wait returns once the gate is open or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

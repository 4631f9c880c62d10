package testsupport

import (
	"context"
	"sync"
	"testing"
	"time"

	"vidqueue/internal/history"
	"vidqueue/internal/jobtree"
	"vidqueue/internal/notifications"
)

// StatusEvent is one observer callback captured by RecordingObserver.
type StatusEvent struct {
	Name   string
	IsStep bool
	Status jobtree.Status
}

// RecordingObserver captures observer callbacks. It also tracks how many steps
// the observer has seen Running at once.
type RecordingObserver struct {
	mu         sync.Mutex
	events     []StatusEvent
	progress   map[string][]float64
	running    map[jobtree.Ref]bool
	maxRunning int
}

func (o *RecordingObserver) StatusChanged(ref jobtree.Ref, status jobtree.Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, isStep := ref.(*jobtree.Step)
	o.events = append(o.events, StatusEvent{Name: ref.Name(), IsStep: isStep, Status: status})
	if !isStep {
		return
	}
	if o.running == nil {
		o.running = make(map[jobtree.Ref]bool)
	}
	if status == jobtree.StatusRunning {
		o.running[ref] = true
	} else {
		delete(o.running, ref)
	}
	o.maxRunning = max(o.maxRunning, len(o.running))
}

func (o *RecordingObserver) ProgressChanged(ref jobtree.Ref, fraction float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.progress == nil {
		o.progress = make(map[string][]float64)
	}
	o.progress[ref.Name()] = append(o.progress[ref.Name()], fraction)
}

// Events returns a copy of the captured status events.
func (o *RecordingObserver) Events() []StatusEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]StatusEvent(nil), o.events...)
}

// Progress returns the fractions reported for the named step.
func (o *RecordingObserver) Progress(name string) []float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]float64(nil), o.progress[name]...)
}

// MaxRunning returns the largest number of simultaneously Running steps seen.
func (o *RecordingObserver) MaxRunning() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.maxRunning
}

// Notice is one published notification.
type Notice struct {
	Event   notifications.Event
	Payload notifications.Payload
}

// RecordingNotifier captures published notifications.
type RecordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *RecordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, Notice{Event: event, Payload: payload})
	return nil
}

// Notices returns a copy of the captured notifications.
func (n *RecordingNotifier) Notices() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.notices...)
}

// Count returns how many notifications of event were published.
func (n *RecordingNotifier) Count(event notifications.Event) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, notice := range n.notices {
		if notice.Event == event {
			count++
		}
	}
	return count
}

// RecordingLedger captures history runs in memory.
type RecordingLedger struct {
	mu   sync.Mutex
	runs []history.Run
}

func (l *RecordingLedger) Record(_ context.Context, run history.Run) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, run)
	return int64(len(l.runs)), nil
}

// Runs returns a copy of the recorded runs.
func (l *RecordingLedger) Runs() []history.Run {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]history.Run(nil), l.runs...)
}

// Eventually polls cond until it holds or timeout elapses.
func Eventually(t testing.TB, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s: %s", timeout, msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vidqueue/internal/worker"
)

func waitHandle(t *testing.T, h *worker.Handle) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Wait(ctx); err != nil {
		t.Fatalf("handle %d did not finish: %v", h.ID(), err)
	}
}

func TestExecutorRunsInSubmissionOrder(t *testing.T) {
	exec := worker.New()
	t.Cleanup(exec.Close)

	var mu sync.Mutex
	var order []int
	handles := make([]*worker.Handle, 0, 10)
	for i := 0; i < 10; i++ {
		i := i
		handles = append(handles, exec.Submit(func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}
	waitHandle(t, handles[len(handles)-1])

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
	for _, h := range handles {
		if h.State() != worker.StateDone {
			t.Fatalf("expected done, got %s", h.State())
		}
	}
}

func TestExecutorNeverOverlapsUnits(t *testing.T) {
	exec := worker.New()
	t.Cleanup(exec.Close)

	var mu sync.Mutex
	active, peak := 0, 0
	var last *worker.Handle
	for i := 0; i < 20; i++ {
		last = exec.Submit(func(context.Context) error {
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			return nil
		})
	}
	waitHandle(t, last)
	if peak != 1 {
		t.Fatalf("expected at most one unit at a time, saw %d", peak)
	}
}

func TestCancelOnlySucceedsWhilePending(t *testing.T) {
	exec := worker.New()
	t.Cleanup(exec.Close)

	release := make(chan struct{})
	started := make(chan struct{})
	blocker := exec.Submit(func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	queued := exec.Submit(func(context.Context) error {
		t.Error("cancelled unit must not run")
		return nil
	})
	<-started

	if blocker.Cancel() {
		t.Fatal("cancel of running unit should return false")
	}
	if !blocker.Running() {
		t.Fatalf("running unit should be unaffected by cancel, got %s", blocker.State())
	}
	if !queued.Cancel() {
		t.Fatal("cancel of pending unit should succeed")
	}
	if queued.Cancel() {
		t.Fatal("second cancel should return false")
	}
	if !queued.Done() || queued.State() != worker.StateCancelled {
		t.Fatalf("expected cancelled state, got %s", queued.State())
	}

	close(release)
	waitHandle(t, blocker)
	if blocker.State() != worker.StateDone {
		t.Fatalf("expected blocker done, got %s", blocker.State())
	}
	if blocker.Cancel() {
		t.Fatal("cancel of finished unit should return false")
	}
}

func TestFailedAndPanickingUnits(t *testing.T) {
	exec := worker.New()
	t.Cleanup(exec.Close)

	boom := errors.New("boom")
	failed := exec.Submit(func(context.Context) error { return boom })
	panicked := exec.Submit(func(context.Context) error { panic("bad payload") })
	after := exec.Submit(func(context.Context) error { return nil })
	waitHandle(t, after)

	if failed.State() != worker.StateFailed || !errors.Is(failed.Err(), boom) {
		t.Fatalf("expected failed with boom, got %s %v", failed.State(), failed.Err())
	}
	if panicked.State() != worker.StateFailed || panicked.Err() == nil {
		t.Fatalf("expected panic to surface as failure, got %s", panicked.State())
	}
	if after.State() != worker.StateDone {
		t.Fatalf("worker should keep running after a panic, got %s", after.State())
	}
}

func TestHookObservesTransitions(t *testing.T) {
	var mu sync.Mutex
	seen := map[uint64][]worker.State{}
	exec := worker.New(worker.WithHook(func(h *worker.Handle, st worker.State) {
		mu.Lock()
		seen[h.ID()] = append(seen[h.ID()], st)
		mu.Unlock()
	}))
	t.Cleanup(exec.Close)

	h := exec.Submit(func(context.Context) error { return nil })
	waitHandle(t, h)

	mu.Lock()
	defer mu.Unlock()
	got := seen[h.ID()]
	if len(got) != 2 || got[0] != worker.StateRunning || got[1] != worker.StateDone {
		t.Fatalf("unexpected transitions: %v", got)
	}
}

func TestCloseCancelsQueuedUnits(t *testing.T) {
	exec := worker.New()
	started := make(chan struct{})
	running := exec.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	queued := exec.Submit(func(context.Context) error { return nil })
	<-started

	exec.Close()

	if queued.State() != worker.StateCancelled {
		t.Fatalf("expected queued unit cancelled, got %s", queued.State())
	}
	if running.State() != worker.StateFailed {
		t.Fatalf("expected in-flight unit to observe cancellation, got %s", running.State())
	}
	late := exec.Submit(func(context.Context) error { return nil })
	if late.State() != worker.StateCancelled || !errors.Is(late.Err(), worker.ErrClosed) {
		t.Fatalf("expected late submission rejected, got %s %v", late.State(), late.Err())
	}
}

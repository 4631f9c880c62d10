package mainloop_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"vidqueue/internal/logging"
	"vidqueue/internal/mainloop"
)

func startLoop(t *testing.T, size int) *mainloop.Loop {
	t.Helper()
	loop := mainloop.New(size, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx) //nolint:errcheck
	t.Cleanup(func() {
		cancel()
		<-loop.Stopped()
	})
	return loop
}

func TestLoopAppliesUpdatesInOrder(t *testing.T) {
	loop := startLoop(t, 8)
	ctx := context.Background()

	var applied []int
	for i := 0; i < 50; i++ {
		i := i
		if err := loop.Post(ctx, func() { applied = append(applied, i) }); err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
	}

	var snapshot []int
	if err := loop.Do(ctx, func() { snapshot = append(snapshot, applied...) }); err != nil {
		t.Fatalf("do: %v", err)
	}
	if len(snapshot) != 50 {
		t.Fatalf("expected 50 updates applied, got %d", len(snapshot))
	}
	for i, v := range snapshot {
		if v != i {
			t.Fatalf("updates applied out of order: %v", snapshot)
		}
	}
}

func TestTryPostDropsWhenFull(t *testing.T) {
	loop := mainloop.New(1, logging.NewNop())
	if !loop.TryPost(func() {}) {
		t.Fatal("expected first TryPost to fit")
	}
	if loop.TryPost(func() {}) {
		t.Fatal("expected TryPost to drop when the queue is full")
	}
}

func TestDoReportsPanics(t *testing.T) {
	loop := startLoop(t, 4)
	err := loop.Do(context.Background(), func() { panic("observer bug") })
	if err == nil {
		t.Fatal("expected panic to surface as error")
	}
	// The loop keeps serving after a panic.
	if err := loop.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("loop unusable after panic: %v", err)
	}
}

func TestPostAfterStop(t *testing.T) {
	loop := mainloop.New(4, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	if err := loop.Post(context.Background(), func() {}); !errors.Is(err, mainloop.ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if loop.TryPost(func() {}) {
		t.Fatal("expected TryPost to refuse after stop")
	}
}

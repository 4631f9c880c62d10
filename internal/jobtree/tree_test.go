package jobtree

import (
	"testing"

	"vidqueue/internal/worker"
)

func TestDeriveJobStatus(t *testing.T) {
	tests := []struct {
		name  string
		steps []Status
		want  Status
	}{
		{"running ahead of waiting", []Status{StatusDone, StatusDone, StatusRunning, StatusWaiting}, StatusRunning},
		{"failure wins", []Status{StatusDone, StatusFailed, StatusWaiting}, StatusFailed},
		{"all done", []Status{StatusDone, StatusDone, StatusDone}, StatusDone},
		{"first unfinished decides", []Status{StatusDone, StatusWaiting, StatusRunning}, StatusWaiting},
		{"failure after running", []Status{StatusRunning, StatusWaiting, StatusFailed}, StatusFailed},
		{"fresh job", []Status{StatusWaiting, StatusWaiting}, StatusWaiting},
		{"no steps", nil, StatusWaiting},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveJobStatus(tc.steps); got != tc.want {
				t.Fatalf("DeriveJobStatus(%v) = %s, want %s", tc.steps, got, tc.want)
			}
		})
	}
}

func TestProjectHandle(t *testing.T) {
	cases := map[worker.State]Status{
		worker.StatePending:   StatusWaiting,
		worker.StateRunning:   StatusRunning,
		worker.StateDone:      StatusDone,
		worker.StateFailed:    StatusFailed,
		worker.StateCancelled: StatusFailed,
	}
	for state, want := range cases {
		if got := ProjectHandle(state); got != want {
			t.Fatalf("ProjectHandle(%s) = %s, want %s", state, got, want)
		}
	}
}

func TestTerminalStatusesAreSticky(t *testing.T) {
	step := NewStep("encode")
	if !step.SetStatus(StatusRunning) {
		t.Fatal("expected waiting -> running")
	}
	if !step.SetStatus(StatusFailed) {
		t.Fatal("expected running -> failed")
	}
	for _, next := range []Status{StatusWaiting, StatusRunning, StatusDone} {
		if step.SetStatus(next) {
			t.Fatalf("failed step moved to %s", next)
		}
	}
	if step.Status() != StatusFailed {
		t.Fatalf("expected failed, got %s", step.Status())
	}

	done := NewStep("mux")
	done.SetStatus(StatusDone)
	if done.SetStatus(StatusFailed) {
		t.Fatal("done step must not become failed")
	}
	if done.Progress() != 1 {
		t.Fatalf("expected done step progress 1, got %v", done.Progress())
	}
	if done.SetProgress(0.5) {
		t.Fatal("progress must not change after completion")
	}
}

func TestSetProgressClamps(t *testing.T) {
	step := NewStep("encode")
	step.SetProgress(1.7)
	if step.Progress() != 1 {
		t.Fatalf("expected clamp to 1, got %v", step.Progress())
	}
	step.SetProgress(-3)
	if step.Progress() != 0 {
		t.Fatalf("expected clamp to 0, got %v", step.Progress())
	}
	if step.SetProgress(0) {
		t.Fatal("unchanged progress should report false")
	}
}

func TestTreeNavigationAndRemoval(t *testing.T) {
	tree := NewTree()
	a := tree.Append("a.mkv")
	b := tree.Append("b.mkv")
	c := tree.Append("c.mkv")
	s1 := a.Attach(NewStep("s1"), nil)
	s2 := a.Attach(NewStep("s2"), nil)

	if s1.Owner() != a || s2.Index() != 1 {
		t.Fatalf("unexpected step wiring: owner=%v index=%d", s1.Owner(), s2.Index())
	}
	if tree.Next(a) != b || tree.Prev(c) != b || tree.Prev(a) != nil {
		t.Fatal("unexpected sibling navigation")
	}
	if !tree.IsLast(c) || tree.IsLast(a) {
		t.Fatal("unexpected IsLast result")
	}
	if tree.Find(b.ID()) != b {
		t.Fatal("expected Find to locate job by id")
	}

	if !tree.Remove(a) {
		t.Fatal("expected removal to succeed")
	}
	if s1.Owner() != nil || s2.Owner() != nil {
		t.Fatal("expected steps detached from removed job")
	}
	if len(a.Steps()) != 0 {
		t.Fatal("expected removed job to have no steps")
	}
	if tree.Index(a) != -1 || tree.Next(a) != nil {
		t.Fatal("removed job still reachable")
	}
	if tree.Remove(a) {
		t.Fatal("second removal should fail")
	}
	if tree.Len() != 2 || tree.At(0) != b {
		t.Fatalf("unexpected tree after removal: len=%d", tree.Len())
	}

	tree.Clear()
	if tree.Len() != 0 {
		t.Fatal("expected empty tree after clear")
	}
}

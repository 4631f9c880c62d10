package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"vidqueue/internal/daemonctl"
	"vidqueue/internal/ipc"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("vidqueue", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "vidqueue:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("vidqueue", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	deps := []ipc.DependencyStatus{
		{Name: "FFprobe", Available: false},
		{Name: "FFmpeg", Available: true, Command: "ffmpeg"},
		{Name: "VSPipe", Available: false, Optional: true, Detail: `binary "vspipe" not found`},
	}
	lines := dependencyLines(deps, daemonctl.BuildDependencySummary(deps), false)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[ERROR]") || !strings.Contains(lines[0], "Summary") {
		t.Fatalf("expected summary line first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] not available") {
		t.Fatalf("expected error detail in second line, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[OK] Ready (command: ffmpeg)") {
		t.Fatalf("expected ready detail in third line, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "[WARN]") {
		t.Fatalf("expected optional dependency as warning, got %q", lines[3])
	}
	if !strings.Contains(lines[4], "Missing dependencies:") || strings.Contains(lines[4], "VSPipe") {
		t.Fatalf("expected only required tools in missing summary, got %q", lines[4])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestProgressCell(t *testing.T) {
	cases := map[float64]string{
		-1:   "[..........]   0%",
		0.5:  "[#####.....]  50%",
		1:    "[##########] 100%",
		1.75: "[##########] 100%",
	}
	for fraction, want := range cases {
		if got := progressCell(fraction); got != want {
			t.Fatalf("progressCell(%v) = %q, want %q", fraction, got, want)
		}
	}
}

func TestJobProgressAndCurrentStep(t *testing.T) {
	job := ipc.Job{Steps: []ipc.Step{
		{Label: "encode video", Status: "done", Progress: 1},
		{Label: "extract audio", Status: "running", Progress: 0.5},
		{Label: "mux", Status: "waiting"},
		{Label: "cleanup", Status: "waiting"},
	}}
	if got := jobProgress(job); got != 0.375 {
		t.Fatalf("jobProgress = %v, want 0.375", got)
	}
	if got := currentStep(job); got != "extract audio" {
		t.Fatalf("currentStep = %q", got)
	}

	job.Steps[1].Status = "done"
	if got := currentStep(job); got != "mux" {
		t.Fatalf("currentStep after progress = %q", got)
	}
	if got := jobProgress(ipc.Job{}); got != 0 {
		t.Fatalf("empty job progress = %v", got)
	}
}

func TestJobCountRowsOrder(t *testing.T) {
	rows := jobCountRows(map[string]int{"done": 2, "waiting": 1, "running": 1, "failed": 0})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %v", rows)
	}
	if rows[0][0] != "running" || rows[1][0] != "waiting" || rows[2][0] != "done" {
		t.Fatalf("unexpected order %v", rows)
	}
}

package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vidqueue/internal/ipc"
	"vidqueue/internal/testsupport"
)

func TestAddListDeleteClear(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"start"}, env.socketPath, env.configPath); err == nil || !strings.Contains(err.Error(), "queue is empty") {
		t.Fatalf("expected empty queue refusal, got %v", err)
	}

	out, _, err := runCLI(t, []string{"add", sourceFile(t, env, "clip.mkv"), sourceFile(t, env, "notes.txt")}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "Queued")
	requireContains(t, out, "(5 steps)")
	requireContains(t, out, "Skipped")

	out, _, err = runCLI(t, []string{"list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "clip.mkv")
	requireContains(t, out, "waiting")

	out, _, err = runCLI(t, []string{"list", "--steps"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("list --steps: %v", err)
	}
	requireContains(t, out, "mux (ffmpeg)")

	out, _, err = runCLI(t, []string{"list", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("list --json: %v", err)
	}
	var listed ipc.ListResponse
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode list json: %v", err)
	}
	if len(listed.Jobs) != 1 || len(listed.Jobs[0].Steps) != 5 {
		t.Fatalf("unexpected list json %+v", listed)
	}
	jobID := listed.Jobs[0].ID

	if _, _, err := runCLI(t, []string{"delete", "no-such-job"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected unknown job delete to fail")
	}
	out, _, err = runCLI(t, []string{"delete", jobID[:8]}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("delete by prefix: %v", err)
	}
	requireContains(t, out, "deleted")

	if _, _, err := runCLI(t, []string{"add", sourceFile(t, env, "again.mkv")}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("second add: %v", err)
	}
	out, _, err = runCLI(t, []string{"clear"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	requireContains(t, out, "Queue cleared")

	out, _, err = runCLI(t, []string{"list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("list after clear: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestAddRejectsAllInvalidSources(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"add", sourceFile(t, env, "readme.txt")}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error when nothing was queued")
	}
	requireContains(t, out, "Skipped")
}

func TestStartRunsQueueIntoHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No finished jobs")

	if _, _, err := runCLI(t, []string{"add", sourceFile(t, env, "movie.mkv")}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("add: %v", err)
	}
	out, _, err = runCLI(t, []string{"start"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Queue started")

	testsupport.Eventually(t, 10*time.Second, func() bool {
		out, _, err := runCLI(t, []string{"history"}, env.socketPath, env.configPath)
		return err == nil && strings.Contains(out, "movie.mkv")
	}, "finished job never reached history")

	out, _, err = runCLI(t, []string{"history", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var hist ipc.HistoryResponse
	if err := json.Unmarshal([]byte(out), &hist); err != nil {
		t.Fatalf("decode history json: %v", err)
	}
	if len(hist.Runs) != 1 || hist.Runs[0].Outcome != "done" {
		t.Fatalf("unexpected history %+v", hist.Runs)
	}

	if _, _, err := runCLI(t, []string{"history", "--limit", "0"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected non-positive limit to be rejected")
	}
}

func TestStopOnIdleQueue(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Queue stopped")
}

func TestCommandsWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	_, _, err := runCLI(t, []string{"list"}, "", configPath)
	if err == nil || !strings.Contains(err.Error(), "vidqueue daemon start") {
		t.Fatalf("expected dial hint, got %v", err)
	}

	out, _, err := runCLI(t, []string{"daemon", "stop"}, "", configPath)
	if err != nil {
		t.Fatalf("daemon stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"vidqueue/internal/config"
	"vidqueue/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.OutputDir = t.TempDir()
	store, err := history.Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := store.Record(ctx, history.Run{
		JobID:       "a",
		Name:        "first.mkv",
		Outcome:     history.OutcomeDone,
		Steps:       6,
		SubmittedAt: base,
		FinishedAt:  base.Add(10 * time.Minute),
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := store.Record(ctx, history.Run{
		JobID:        "b",
		Name:         "second.mkv",
		Outcome:      history.OutcomeFailed,
		FailedStep:   "encode video",
		FailureKind:  "external_tool",
		ErrorMessage: "ffmpeg exited with status 1",
		Steps:        6,
		SubmittedAt:  base,
		FinishedAt:   base.Add(20 * time.Minute),
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	runs, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].JobID != "b" || runs[0].FailedStep != "encode video" {
		t.Fatalf("expected newest failed run first, got %+v", runs[0])
	}
	if runs[1].Duration != 10*time.Minute {
		t.Fatalf("expected derived duration, got %s", runs[1].Duration)
	}

	limited, err := store.List(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected one run with limit, got %d err=%v", len(limited), err)
	}
}

func TestPrune(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, age := range []time.Duration{48 * time.Hour, time.Hour} {
		if _, err := store.Record(ctx, history.Run{
			JobID:      string(rune('a' + i)),
			Name:       "job.mkv",
			Outcome:    history.OutcomeDone,
			FinishedAt: now.Add(-age),
		}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	removed, err := store.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned run, got %d", removed)
	}
	runs, _ := store.List(ctx, 0)
	if len(runs) != 1 || runs[0].JobID != "b" {
		t.Fatalf("unexpected remaining runs %+v", runs)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := history.OpenPath(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

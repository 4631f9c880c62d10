package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"vidqueue/internal/logging"
)

func TestCleanOrphanedInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanOrphaned(context.Background(), dir, nil, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanOrphanedKeepsActiveAndFiles(t *testing.T) {
	tmpDir := t.TempDir()

	orphan := filepath.Join(tmpDir, "movie-1a2b3c4d")
	active := filepath.Join(tmpDir, "clip-5e6f7a8b")
	for _, dir := range []string{orphan, active} {
		if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o755); err != nil {
			t.Fatalf("create %s: %v", dir, err)
		}
	}
	stray := filepath.Join(tmpDir, "notes.txt")
	if err := os.WriteFile(stray, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	result := CleanOrphaned(context.Background(), tmpDir, map[string]struct{}{"clip-5e6f7a8b": {}}, logging.NewNop())

	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != orphan {
		t.Fatalf("removed = %v, want [%s]", result.Removed, orphan)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Error("orphaned directory should have been removed")
	}
	if _, err := os.Stat(active); err != nil {
		t.Error("active directory should still exist")
	}
	if _, err := os.Stat(stray); err != nil {
		t.Error("plain file should still exist")
	}
}

func TestCleanOrphanedStopsOnCanceledContext(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "job")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := CleanOrphaned(ctx, tmpDir, nil, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed, got %v", result.Removed)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatal("directory should survive a canceled cleanup")
	}
}

// Package staging reclaims job work directories left behind by a previous
// daemon run.
package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"vidqueue/internal/logging"
)

// Result contains the outcome of a cleanup pass.
type Result struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanOrphaned removes directories under workDir whose names are not in
// active. Jobs do not survive a restart, so at startup active is empty and
// every leftover directory belongs to a job that no longer exists. Plain
// files are left alone.
func CleanOrphaned(ctx context.Context, workDir string, active map[string]struct{}, logger *slog.Logger) Result {
	result := Result{}

	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return result
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: workDir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() {
			continue
		}
		if _, ok := active[entry.Name()]; ok {
			continue
		}

		dirPath := filepath.Join(workDir, entry.Name())
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove orphaned work directory",
					logging.String("path", dirPath),
					logging.Error(err),
					logging.String(logging.FieldEventType, "workdir_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check paths.work_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed orphaned work directory",
				logging.String("path", dirPath),
				logging.String(logging.FieldEventType, "workdir_cleanup"),
			)
		}
	}

	return result
}

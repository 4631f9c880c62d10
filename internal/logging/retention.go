package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// PruneRunLogs removes files in dir matching pattern whose modification time
// is more than retentionDays old, skipping any path listed in keep. It
// returns how many files were removed. retentionDays <= 0 disables pruning.
func PruneRunLogs(logger *slog.Logger, dir, pattern string, retentionDays int, keep ...string) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		WarnWithContext(logger, "log retention pattern invalid", "log_retention_failed",
			String("pattern", pattern),
			Error(err),
			String(FieldImpact, "old run logs are not pruned"),
		)
		return 0
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, path := range matches {
		if slices.ContainsFunc(keep, func(k string) bool { return samePath(k, path) }) {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and paths.log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Info("log pruned",
				String("path", path),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
	return removed
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(strings.TrimSpace(a))
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

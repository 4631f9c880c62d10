// Package logging assembles the slog loggers used across vidqueue.
//
// A daemon run writes one log file in console or JSON format and, in the
// foreground, mirrors console lines to the terminal. Console lines lead with
// the component and the short job id:
//
//	2026-01-02T15:04:05Z INFO queue [3f2a9c1e] step started step="encode video"
//
// WithContext tags a logger with the job, step and request ids carried by a
// context, and WarnWithContext makes every warning state its event type, a
// hint and its impact. PruneRunLogs enforces logging.retention_days.
package logging

// Package services defines small shared helpers used by job step payloads and
// the queue.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, step labels, and correlation
//     identifiers for logging.
//   - Error markers plus the Wrap helper so step failures carry the step and
//     operation that failed, and FailureKind to classify them afterwards.
package services

// Package history keeps a SQLite ledger of finished jobs.
//
// The ledger is write-once reporting data: it never feeds back into the
// queue, so a restarted daemon starts with an empty queue regardless of what
// the ledger holds. The schema is versioned; a mismatch is reported with
// ErrSchemaMismatch rather than migrated.
package history

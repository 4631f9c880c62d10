// Package daemon owns the single job queue of a vidqueue process.
//
// It wires configuration, the main loop, the scheduler, the process tracker,
// the transcode planner, notifications and the history ledger into one
// lifecycle, guarded by a flock so only one daemon runs per state directory.
// Controller requests (add, start, stop, delete, clear, list) arrive from
// the IPC server on arbitrary goroutines and are marshaled onto the main
// loop before they touch the queue.
package daemon

// Package worker provides the single-worker execution context that backs the
// transcoding queue.
//
// An Executor owns exactly one goroutine that runs submitted units strictly in
// submission order, one at a time. Every other package relies on this: the
// process tracker holds a single slot for "the" running external tool, and
// the scheduler assumes a Job's steps can never overlap. Do not add a second
// worker to an Executor; build a second Executor instead and accept that the
// queue guarantees no longer hold across them.
//
// Handles expose Running, Done and Cancel. Cancel only succeeds while a unit is
// still pending, so a running external process has to be stopped through the
// process tracker rather than through its handle.
package worker

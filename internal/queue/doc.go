// Package queue is the job execution engine.
//
// A Scheduler owns the job tree, the run/pause gate and a single-worker
// executor. Callers build a job with NewJob and SubmitStep; every step is
// preceded on the worker by a gate-wait unit, so nothing runs until Start and
// the worker pauses in front of the next step whenever the queue goes idle.
//
// The scheduler is confined to the main loop goroutine. The worker only
// drives handles; Reconcile, triggered by handle transitions and a ticker,
// projects handle state into step and job statuses on the loop and reports
// changes to the Observer. Notifications and history rows are handed to Run
// so slow endpoints never stall the loop.
//
// Stop is a hard stop: the in-flight tool is terminated and every unfinished
// step fails. Failed jobs stay in the tree until deleted or cleared; nothing
// is retried.
package queue

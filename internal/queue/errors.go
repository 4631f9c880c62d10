package queue

import "errors"

var (
	// ErrEmptyQueue is returned by Start when there is nothing to run.
	ErrEmptyQueue = errors.New("queue is empty")
	// ErrJobRunning refuses deleting or clearing a job with a running step.
	ErrJobRunning = errors.New("job has a running step")
	// ErrNotIdle refuses Clear while the queue is running.
	ErrNotIdle = errors.New("queue is running; stop it first")
	// ErrUnknownRef is returned for jobs or steps no longer in the tree.
	ErrUnknownRef = errors.New("job not in queue")
	// ErrJobFinished refuses adding steps to a job that already reached a terminal status.
	ErrJobFinished = errors.New("job already finished")
	// ErrPredecessorFailed is the error of a step skipped because an earlier step of its job failed.
	ErrPredecessorFailed = errors.New("earlier step failed")
)

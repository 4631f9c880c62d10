package jobtree

import (
	"strings"

	"vidqueue/internal/worker"
)

// Status is the display status of a Step or Job.
type Status int

const (
	StatusWaiting Status = iota
	StatusRunning
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status never changes again.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// ParseStatus converts a status name back into a Status.
func ParseStatus(value string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "waiting":
		return StatusWaiting, true
	case "running":
		return StatusRunning, true
	case "done":
		return StatusDone, true
	case "failed":
		return StatusFailed, true
	default:
		return StatusWaiting, false
	}
}

// ProjectHandle maps a handle state onto a step status.
func ProjectHandle(state worker.State) Status {
	switch state {
	case worker.StateRunning:
		return StatusRunning
	case worker.StateDone:
		return StatusDone
	case worker.StateFailed, worker.StateCancelled:
		return StatusFailed
	default:
		return StatusWaiting
	}
}

// DeriveJobStatus computes a job status from its step statuses in order.
// Any failure wins; otherwise the first unfinished step decides. A job with no
// steps is waiting.
func DeriveJobStatus(steps []Status) Status {
	for _, st := range steps {
		if st == StatusFailed {
			return StatusFailed
		}
	}
	for _, st := range steps {
		switch st {
		case StatusDone:
			continue
		case StatusRunning:
			return StatusRunning
		default:
			return StatusWaiting
		}
	}
	if len(steps) == 0 {
		return StatusWaiting
	}
	return StatusDone
}

// advance applies the monotonic transition rules shared by steps and jobs.
// Terminal statuses never change.
func advance(current *Status, next Status) bool {
	if *current == next || current.Terminal() {
		return false
	}
	*current = next
	return true
}

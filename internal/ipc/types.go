package ipc

import "time"

// Request carries fields shared by every call. RequestID correlates client
// and daemon log lines.
type Request struct {
	RequestID string `json:"request_id"`
}

// Result is embedded in responses to queue operations. Refusals such as
// deleting a running job are reported here rather than as RPC errors, with
// Code naming the refusal.
type Result struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Refusal codes.
const (
	CodeEmptyQueue  = "empty_queue"
	CodeJobRunning  = "job_running"
	CodeNotIdle     = "not_idle"
	CodeUnknownRef  = "unknown_ref"
	CodeJobFinished = "job_finished"
	CodeError       = "error"
)

// AddRequest submits source files.
type AddRequest struct {
	Request
	Paths []string `json:"paths"`
}

// AddResult is the outcome for one path.
type AddResult struct {
	Source string `json:"source"`
	JobID  string `json:"job_id,omitempty"`
	Steps  int    `json:"steps"`
	Error  string `json:"error,omitempty"`
}

// AddResponse lists per-path outcomes in request order.
type AddResponse struct {
	Results []AddResult `json:"results"`
}

// StartRequest opens the queue gate.
type StartRequest struct{ Request }

// StartResponse reports whether the queue is running.
type StartResponse struct{ Result }

// StopRequest hard-stops the queue.
type StopRequest struct{ Request }

// StopResponse reports the stop outcome.
type StopResponse struct{ Result }

// DeleteRequest removes a job. Step selects a step of the job when >= 0.
type DeleteRequest struct {
	Request
	JobID string `json:"job_id"`
	Step  int    `json:"step"`
}

// DeleteResponse reports the delete outcome.
type DeleteResponse struct{ Result }

// ClearRequest empties an idle queue.
type ClearRequest struct{ Request }

// ClearResponse reports the clear outcome.
type ClearResponse struct{ Result }

// ListRequest fetches the job tree.
type ListRequest struct{ Request }

// Step mirrors queue.StepView.
type Step struct {
	Index    int     `json:"index"`
	Label    string  `json:"label"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

// Job mirrors queue.JobView.
type Job struct {
	ID        string    `json:"id"`
	Index     int       `json:"index"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Submitted time.Time `json:"submitted"`
	Steps     []Step    `json:"steps"`
}

// ListResponse contains the job tree in execution order.
type ListResponse struct {
	Idle bool  `json:"idle"`
	Jobs []Job `json:"jobs"`
}

// HistoryRequest fetches finished jobs.
type HistoryRequest struct {
	Request
	Limit int `json:"limit"`
}

// Run mirrors history.Run.
type Run struct {
	JobID        string        `json:"job_id"`
	Name         string        `json:"name"`
	Outcome      string        `json:"outcome"`
	FailedStep   string        `json:"failed_step,omitempty"`
	FailureKind  string        `json:"failure_kind,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Steps        int           `json:"steps"`
	SubmittedAt  time.Time     `json:"submitted_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Duration     time.Duration `json:"duration"`
}

// HistoryResponse lists runs newest first.
type HistoryResponse struct {
	Runs []Run `json:"runs"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{ Request }

// DependencyStatus describes availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail"`
}

// StatusResponse represents daemon and queue status.
type StatusResponse struct {
	Running      bool               `json:"running"`
	QueueIdle    bool               `json:"queue_idle"`
	Jobs         int                `json:"jobs"`
	JobCounts    map[string]int     `json:"job_counts"`
	Activity     string             `json:"activity,omitempty"`
	Dependencies []DependencyStatus `json:"dependencies"`
	LockPath     string             `json:"lock_path"`
	SocketPath   string             `json:"socket_path"`
	HistoryPath  string             `json:"history_path,omitempty"`
	LogPath      string             `json:"log_path"`
	PID          int                `json:"pid"`
}

// TestNotificationRequest sends a test notification.
type TestNotificationRequest struct{ Request }

// TestNotificationResponse reports whether it was sent.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{ Request }

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Accepted bool `json:"accepted"`
}

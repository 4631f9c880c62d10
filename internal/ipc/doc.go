// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// The service is registered as "VidQueue". Queue refusals (empty queue, job
// running, queue not idle, unknown job) come back as a Result with OK false
// and a Code, so controllers can ignore them without string matching. Every
// request carries a request id that the daemon logs as correlation_id.
package ipc

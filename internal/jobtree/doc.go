// Package jobtree models the queue contents: jobs made of ordered steps, and
// the status rules that tie a step to its unit of work and a job to its steps.
//
// Statuses only move forward into Done or Failed; once there they stay. The
// types carry no locks and belong to the main loop goroutine.
package jobtree

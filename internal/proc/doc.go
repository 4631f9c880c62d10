// Package proc runs external tools on behalf of job steps.
//
// Runner spawns each tool in its own process group, scans stdout and stderr
// for progress markers and reports completion fractions to a sink. Tracker
// holds the single in-flight activity so a hard stop can signal it and poll
// until it exits. Only one activity is ever registered at a time; the queue's
// single worker guarantees this and Tracker rejects a second registration
// with ErrBusy.
package proc

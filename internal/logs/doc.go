// Package logs reads the daemon's run logs for `vidqueue logs`.
//
// Each daemon run writes its own vidqueue-<run>.log and repoints the
// vidqueue.log link at it. Tail reads the last lines of the current run and,
// in follow mode, polls from a byte offset for new ones. When the daemon
// restarts the link moves to a shorter file, so an offset past the end
// restarts the read at the top of the new log.
package logs

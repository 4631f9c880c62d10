// Package ffprobe inspects source media before a job is planned.
//
// Inspect runs ffprobe with -show_streams, -show_format and -show_chapters
// and returns a Result whose helpers give stream selection by type, language
// and title tags, chapter offsets and the container duration used to scale
// encoder progress.
package ffprobe

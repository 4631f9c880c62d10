// Package transcode turns a source file into the ordered steps of a job.
//
// A Planner probes the source with ffprobe and builds a Plan holding one
// Track per stream worth keeping: a VideoTrack for the first video stream,
// an AudioTrack per audio stream, a TextTrack per subtitle stream and a
// MenuTrack when the source has chapters. Each track contributes the steps
// that produce its intermediate file. The plan then appends a mux step that
// assembles the intermediates into the output container and a cleanup step
// that removes the per-job work directory.
//
// Step payloads run on the queue worker. External tools go through
// proc.Runner so the queue can hard-stop them; the drapto encoder runs in
// process and is registered with the tracker through its cancel func.
package transcode

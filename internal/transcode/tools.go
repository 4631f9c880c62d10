package transcode

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"vidqueue/internal/proc"
	"vidqueue/internal/services"
)

var ffmpegPrelude = []string{"-hide_banner", "-nostdin", "-y"}

// progressArgs make ffmpeg emit key=value progress on stdout instead of the
// carriage-return stats line.
var progressArgs = []string{"-progress", "pipe:1", "-nostats"}

func (p *Plan) runFFmpeg(ctx context.Context, label string, args []string, duration time.Duration, progress func(float64)) error {
	full := append(append([]string{}, ffmpegPrelude...), args...)
	cmd := proc.Command{
		Name:     "ffmpeg",
		Path:     p.cfg().Tools.FFmpeg,
		Args:     full,
		Dir:      p.WorkDir,
		Duration: duration,
	}
	return classify(ctx, label, "ffmpeg", p.planner.runner.Run(ctx, cmd, progress))
}

// classify tags a tool error so history and logs can tell an interrupted
// step from a broken tool or a misconfigured binary.
func classify(ctx context.Context, label, tool string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return services.Wrap(services.ErrInterrupted, label, tool, "", err)
	}
	if errors.Is(err, exec.ErrNotFound) {
		return services.Wrap(services.ErrConfiguration, label, tool, "binary not found", err)
	}
	return services.Wrap(services.ErrExternalTool, label, tool, "", err)
}

func (p *Plan) runPipeline(ctx context.Context, label string, args []string, progress func(float64)) error {
	cmd := proc.Command{
		Name:     "vspipe|ffmpeg",
		Path:     "/bin/sh",
		Args:     args,
		Dir:      p.WorkDir,
		Duration: p.Duration,
	}
	return classify(ctx, label, "vspipe|ffmpeg", p.planner.runner.Run(ctx, cmd, progress))
}

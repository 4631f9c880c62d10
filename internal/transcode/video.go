package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vidqueue/internal/services"
)

const frameScriptTemplate = `import vapoursynth as vs
core = vs.core
clip = core.lsmas.LWLibavSource(source=%s)
clip.set_output()
`

// pipelineScript feeds vspipe's y4m output into ffmpeg. Both run in the same
// process group, so stopping the step stops the pair. sh reports only
// ffmpeg's status for the pipe, so vspipe's is written to a file and checked
// once ffmpeg succeeded.
const pipelineScript = `vspipe="$1"; script="$2"; ffmpeg="$3"; status="$4"; shift 4
rm -f "$status"
{ "$vspipe" -c y4m "$script" -; echo $? > "$status"; } | "$ffmpeg" "$@"
rc=$?
if [ "$rc" -ne 0 ]; then
	exit "$rc"
fi
vs=$(cat "$status" 2>/dev/null)
vs=${vs:-1}
if [ "$vs" -ne 0 ]; then
	echo "vspipe exited with status $vs" >&2
	exit "$vs"
fi`

func videoCodec(encoder string) string {
	switch encoder {
	case "x264":
		return "libx264"
	default:
		return "libx265"
	}
}

// Process returns the video steps. With drapto the source is encoded in
// process; otherwise ffmpeg encodes it, reading frames from a generated
// VapourSynth script when tools.vspipe is set.
func (v VideoTrack) Process(plan *Plan) []StepSpec {
	cfg := plan.cfg()
	if cfg.Tools.VideoEncoder == "drapto" {
		return []StepSpec{v.draptoStep(plan)}
	}

	output := plan.workPath("video.mkv")
	plan.addInput(muxInput{kind: KindVideo, path: output, language: v.Stream.Language(), title: v.Stream.Title(), isDefault: true})

	encode := []string{
		"-c:v", videoCodec(cfg.Tools.VideoEncoder),
		"-crf", strconv.Itoa(cfg.Tools.VideoQuality),
		"-preset", cfg.Tools.VideoPreset,
	}
	encode = append(encode, progressArgs...)
	encode = append(encode, output)

	if cfg.Tools.VSPipe == "" {
		label := fmt.Sprintf("encode video (%s)", cfg.Tools.VideoEncoder)
		return []StepSpec{{
			Label: label,
			Payload: func(ctx context.Context, progress func(float64)) error {
				if err := plan.ensureWorkDir(); err != nil {
					return err
				}
				args := append([]string{"-i", plan.Source, "-map", "0:" + strconv.Itoa(v.Stream.Index)}, encode...)
				return plan.runFFmpeg(ctx, label, args, plan.Duration, progress)
			},
		}}
	}

	script := plan.workPath("video.vpy")
	label := fmt.Sprintf("encode video (vspipe | %s)", cfg.Tools.VideoEncoder)
	return []StepSpec{
		{
			Label: "generate frame script",
			Payload: func(ctx context.Context, progress func(float64)) error {
				if err := plan.ensureWorkDir(); err != nil {
					return err
				}
				body := fmt.Sprintf(frameScriptTemplate, strconv.Quote(plan.Source))
				if err := os.WriteFile(script, []byte(body), 0o644); err != nil {
					return services.Wrap(services.ErrExternalTool, "generate frame script", "write", script, err)
				}
				if progress != nil {
					progress(1)
				}
				return nil
			},
		},
		{
			Label: label,
			Payload: func(ctx context.Context, progress func(float64)) error {
				if err := plan.ensureWorkDir(); err != nil {
					return err
				}
				args := []string{"-c", pipelineScript, "vidqueue-encode", cfg.Tools.VSPipe, script, cfg.Tools.FFmpeg, plan.workPath("vspipe.status")}
				args = append(args, ffmpegPrelude...)
				args = append(args, "-f", "yuv4mpegpipe", "-i", "-")
				args = append(args, encode...)
				return plan.runPipeline(ctx, label, args, progress)
			},
		},
	}
}

func (v VideoTrack) draptoStep(plan *Plan) StepSpec {
	outDir := plan.workPath("drapto")
	stem := strings.TrimSuffix(plan.Name, filepath.Ext(plan.Name))
	output := filepath.Join(outDir, stem+".mkv")
	plan.addInput(muxInput{kind: KindVideo, path: output, language: v.Stream.Language(), title: v.Stream.Title(), isDefault: true})

	const label = "encode video (drapto)"
	return StepSpec{
		Label: label,
		Payload: func(ctx context.Context, progress func(float64)) error {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return services.Wrap(services.ErrConfiguration, label, "create output directory", outDir, err)
			}
			return plan.planner.encodeDrapto(ctx, label, plan.Source, outDir, progress)
		},
	}
}

package transcode

import (
	"context"
	"fmt"
	"strconv"
)

// Process extracts the stream into its own file, then re-encodes it with
// tools.audio_encoder. The copy encoder keeps the extracted file as is.
func (a AudioTrack) Process(plan *Plan) []StepSpec {
	cfg := plan.cfg()
	extracted := plan.workPath(fmt.Sprintf("audio-%d.mka", a.Number))
	extractLabel := fmt.Sprintf("extract audio %d (%s)", a.Number, a.Stream.Language())
	steps := []StepSpec{{
		Label: extractLabel,
		Payload: func(ctx context.Context, progress func(float64)) error {
			if err := plan.ensureWorkDir(); err != nil {
				return err
			}
			args := []string{"-i", plan.Source, "-map", "0:" + strconv.Itoa(a.Stream.Index), "-c", "copy"}
			args = append(args, progressArgs...)
			args = append(args, extracted)
			return plan.runFFmpeg(ctx, extractLabel, args, plan.Duration, progress)
		},
	}}

	in := muxInput{kind: KindAudio, path: extracted, language: a.Stream.Language(), title: trackTitle(a.Stream), isDefault: a.Number == 1}
	if cfg.Tools.AudioEncoder == "copy" {
		plan.addInput(in)
		return steps
	}

	encoded := plan.workPath(fmt.Sprintf("audio-%d.%s.mka", a.Number, cfg.Tools.AudioEncoder))
	in.path = encoded
	plan.addInput(in)

	encodeLabel := fmt.Sprintf("encode audio %d (%s)", a.Number, cfg.Tools.AudioEncoder)
	return append(steps, StepSpec{
		Label: encodeLabel,
		Payload: func(ctx context.Context, progress func(float64)) error {
			if err := plan.ensureWorkDir(); err != nil {
				return err
			}
			args := []string{"-i", extracted, "-map", "0:a:0", "-c:a", cfg.Tools.AudioEncoder}
			if cfg.Tools.AudioEncoder != "flac" && cfg.Tools.AudioBitrate != "" {
				args = append(args, "-b:a", cfg.Tools.AudioBitrate)
			}
			args = append(args, progressArgs...)
			args = append(args, encoded)
			return plan.runFFmpeg(ctx, encodeLabel, args, plan.Duration, progress)
		},
	})
}

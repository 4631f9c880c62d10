package transcode

import (
	"context"
	"fmt"
	"strconv"
)

// Process extracts the subtitle stream into a Matroska subtitle file.
func (s TextTrack) Process(plan *Plan) []StepSpec {
	output := plan.workPath(fmt.Sprintf("subtitles-%d.mks", s.Number))
	plan.addInput(muxInput{kind: KindText, path: output, language: s.Stream.Language(), title: trackTitle(s.Stream), isDefault: s.Stream.Default()})

	label := fmt.Sprintf("extract subtitles %d (%s)", s.Number, s.Stream.Language())
	return []StepSpec{{
		Label: label,
		Payload: func(ctx context.Context, progress func(float64)) error {
			if err := plan.ensureWorkDir(); err != nil {
				return err
			}
			args := []string{"-i", plan.Source, "-map", "0:" + strconv.Itoa(s.Stream.Index), "-c", "copy"}
			args = append(args, progressArgs...)
			args = append(args, output)
			return plan.runFFmpeg(ctx, label, args, plan.Duration, progress)
		},
	}}
}

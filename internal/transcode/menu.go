package transcode

import (
	"context"
	"fmt"
	"os"
	"strings"

	"vidqueue/internal/media/ffprobe"
	"vidqueue/internal/services"
)

// Process writes the chapters as an ffmetadata file for the mux step.
func (m MenuTrack) Process(plan *Plan) []StepSpec {
	output := plan.workPath("chapters.ffmeta")
	plan.addInput(muxInput{kind: KindMenu, path: output})

	return []StepSpec{{
		Label: "export chapters",
		Payload: func(ctx context.Context, progress func(float64)) error {
			if err := plan.ensureWorkDir(); err != nil {
				return err
			}
			if err := os.WriteFile(output, []byte(FormatChapters(m.Chapters)), 0o644); err != nil {
				return services.Wrap(services.ErrExternalTool, "export chapters", "write", output, err)
			}
			if progress != nil {
				progress(1)
			}
			return nil
		},
	}}
}

// FormatChapters renders chapters in ffmetadata form with millisecond
// timestamps. Untitled chapters are numbered.
func FormatChapters(chapters []ffprobe.Chapter) string {
	var b strings.Builder
	b.WriteString(";FFMETADATA1\n")
	for i, ch := range chapters {
		title := ch.Title()
		if title == "" {
			title = fmt.Sprintf("Chapter %02d", i+1)
		}
		b.WriteString("\n[CHAPTER]\nTIMEBASE=1/1000\n")
		fmt.Fprintf(&b, "START=%d\n", ch.Start().Milliseconds())
		fmt.Fprintf(&b, "END=%d\n", ch.End().Milliseconds())
		fmt.Fprintf(&b, "title=%s\n", escapeMetadata(title))
	}
	return b.String()
}

var metadataEscaper = strings.NewReplacer(
	`\`, `\\`,
	"=", `\=`,
	";", `\;`,
	"#", `\#`,
	"\n", "\\\n",
)

func escapeMetadata(value string) string {
	return metadataEscaper.Replace(value)
}

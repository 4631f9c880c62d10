package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"vidqueue/internal/services"
)

const muxLabel = "mux (ffmpeg)"

// muxArgs assembles every registered intermediate into one Matroska file.
func (p *Plan) muxArgs(output string) []string {
	var args, maps []string
	counts := map[Kind]int{}
	for i, in := range p.inputs {
		idx := strconv.Itoa(i)
		if in.kind == KindMenu {
			args = append(args, "-f", "ffmetadata", "-i", in.path)
			maps = append(maps, "-map_chapters", idx)
			continue
		}
		args = append(args, "-i", in.path)

		spec := streamSpecifier(in.kind)
		n := counts[in.kind]
		counts[in.kind]++
		out := spec + ":" + strconv.Itoa(n)
		maps = append(maps, "-map", idx+":"+spec+":0")
		if in.language != "" {
			maps = append(maps, "-metadata:s:"+out, "language="+in.language)
		}
		if in.title != "" {
			maps = append(maps, "-metadata:s:"+out, "title="+in.title)
		}
		if in.kind != KindVideo {
			disposition := "0"
			if in.isDefault {
				disposition = "default"
			}
			maps = append(maps, "-disposition:"+out, disposition)
		}
	}
	args = append(args, maps...)
	args = append(args, "-c", "copy", "-f", "matroska")
	args = append(args, progressArgs...)
	return append(args, output)
}

func streamSpecifier(kind Kind) string {
	switch kind {
	case KindVideo:
		return "v"
	case KindAudio:
		return "a"
	default:
		return "s"
	}
}

// muxStep writes to a partial file and renames it into place, so the output
// directory never holds a truncated result.
func (p *Plan) muxStep() StepSpec {
	return StepSpec{
		Label: muxLabel,
		Payload: func(ctx context.Context, progress func(float64)) error {
			if err := p.ensureWorkDir(); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(p.Output), 0o755); err != nil {
				return services.Wrap(services.ErrConfiguration, muxLabel, "create output directory", filepath.Dir(p.Output), err)
			}
			partial := p.Output + ".partial"
			if err := p.runFFmpeg(ctx, muxLabel, p.muxArgs(partial), p.Duration, progress); err != nil {
				_ = os.Remove(partial)
				return err
			}
			if err := os.Rename(partial, p.Output); err != nil {
				return services.Wrap(services.ErrExternalTool, muxLabel, "rename output", fmt.Sprintf("%s -> %s", partial, p.Output), err)
			}
			return nil
		},
	}
}

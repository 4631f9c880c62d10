package ffprobe

import (
	"math"
	"testing"
	"time"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "avg_frame_rate": "24000/1001", "disposition": {"default": 1}},
    {"index": 1, "codec_name": "ac3", "codec_type": "audio", "channels": 6, "tags": {"language": "eng", "title": "Surround"}},
    {"index": 2, "codec_name": "aac", "codec_type": "audio", "channels": 2},
    {"index": 3, "codec_name": "subrip", "codec_type": "subtitle", "tags": {"language": "fre"}}
  ],
  "chapters": [
    {"id": 0, "start_time": "0.000000", "end_time": "300.500000", "tags": {"title": "Opening"}},
    {"id": 1, "start_time": "300.500000", "end_time": "600.000000"}
  ],
  "format": {"filename": "movie.mkv", "nb_streams": 4, "duration": "600.000000", "size": "1000", "bit_rate": "32000", "format_name": "matroska,webm"}
}`

func TestParseSample(t *testing.T) {
	result, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	audio := result.StreamsOfType(TypeAudio)
	if len(audio) != 2 {
		t.Fatalf("expected 2 audio streams, got %d", len(audio))
	}
	if audio[0].Language() != "eng" || audio[0].Title() != "Surround" {
		t.Fatalf("unexpected audio tags: %q %q", audio[0].Language(), audio[0].Title())
	}
	if audio[1].Language() != "und" {
		t.Fatalf("expected und for untagged stream, got %q", audio[1].Language())
	}
	if !result.Streams[0].Default() {
		t.Fatal("expected video stream to be default")
	}
	if len(result.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(result.Chapters))
	}
	if got := result.Chapters[0].End(); got != 300500*time.Millisecond {
		t.Fatalf("unexpected chapter end %v", got)
	}
	if result.Chapters[0].Title() != "Opening" || result.Chapters[1].Title() != "" {
		t.Fatalf("unexpected chapter titles")
	}
	if result.Duration() != 10*time.Minute {
		t.Fatalf("unexpected duration %v", result.Duration())
	}
}

func TestResultHelpers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
			BitRate:  "32000",
		},
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.Duration() != 0 {
		t.Fatalf("expected zero duration, got %v", result.Duration())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

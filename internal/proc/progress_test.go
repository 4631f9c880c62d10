package proc

import (
	"testing"
	"time"
)

func TestProgressParserPercentMarkers(t *testing.T) {
	p := NewProgressParser(0)
	cases := []struct {
		line string
		want float64
		ok   bool
	}{
		{"[12.5%] 300/2400 frames", 0.125, true},
		{"noise without markers", 0, false},
		{"[10.0%] went backwards", 0.125, false},
		{"Frame 2400/2400 (100%)", 1, true},
	}
	for _, tc := range cases {
		got, ok := p.Parse(tc.line)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Parse(%q) = %v,%v want %v,%v", tc.line, got, ok, tc.want, tc.ok)
		}
	}
}

func TestProgressParserFFmpegStats(t *testing.T) {
	p := NewProgressParser(100 * time.Second)
	got, ok := p.Parse("frame= 1200 fps= 48 q=28.0 size=  1024kB time=00:00:25.00 bitrate= 335.5kbits/s speed=2.1x")
	if !ok || got != 0.25 {
		t.Fatalf("expected 0.25, got %v ok=%v", got, ok)
	}
	got, ok = p.Parse("frame= 4800 fps= 48 time=00:01:15.00 bitrate= 335.5kbits/s")
	if !ok || got != 0.75 {
		t.Fatalf("expected 0.75, got %v ok=%v", got, ok)
	}
}

func TestProgressParserFFmpegProgressKeys(t *testing.T) {
	p := NewProgressParser(10 * time.Second)
	if got, ok := p.Parse("out_time_us=5000000"); !ok || got != 0.5 {
		t.Fatalf("expected 0.5, got %v ok=%v", got, ok)
	}
	if got, ok := p.Parse("out_time_ms=20000000"); !ok || got != 1 {
		t.Fatalf("expected clamp to 1, got %v ok=%v", got, ok)
	}
	if _, ok := p.Parse("progress=end"); ok {
		t.Fatal("expected no advance once at 1")
	}
}

func TestProgressParserIgnoresTimeWithoutDuration(t *testing.T) {
	p := NewProgressParser(0)
	if _, ok := p.Parse("time=00:00:25.00"); ok {
		t.Fatal("expected no fraction without a duration")
	}
	if got, ok := p.Parse("progress=end"); !ok || got != 1 {
		t.Fatalf("expected progress=end to report 1, got %v", got)
	}
}

func TestScanLinesOrCR(t *testing.T) {
	data := []byte("a\rb\nc")
	var tokens []string
	for len(data) > 0 {
		advance, token, err := scanLinesOrCR(data, true)
		if err != nil {
			t.Fatalf("split: %v", err)
		}
		tokens = append(tokens, string(token))
		data = data[advance:]
	}
	if len(tokens) != 3 || tokens[0] != "a" || tokens[1] != "b" || tokens[2] != "c" {
		t.Fatalf("unexpected tokens %q", tokens)
	}
}

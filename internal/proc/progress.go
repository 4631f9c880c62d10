package proc

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	percentPattern = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*%`)
	timePattern    = regexp.MustCompile(`(?:^|\s)time=\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
)

// ProgressParser extracts completion fractions from tool output lines.
// It understands ffmpeg -progress key=value output (out_time_us, progress=end),
// ffmpeg -stats lines (time=HH:MM:SS.xx) measured against a known duration,
// and plain "NN%" markers printed by encoders such as x264 or vspipe.
type ProgressParser struct {
	duration time.Duration
	last     float64
}

// NewProgressParser returns a parser. Duration may be zero when unknown; then
// only percent markers and progress=end are recognized.
func NewProgressParser(duration time.Duration) *ProgressParser {
	return &ProgressParser{duration: duration, last: -1}
}

// Parse returns the fraction carried by line and whether it advanced past the
// previously reported value. Fractions never move backwards.
func (p *ProgressParser) Parse(line string) (float64, bool) {
	fraction, ok := p.extract(strings.TrimSpace(line))
	if !ok {
		return 0, false
	}
	if fraction > 1 {
		fraction = 1
	}
	if fraction <= p.last {
		return p.last, false
	}
	p.last = fraction
	return fraction, true
}

func (p *ProgressParser) extract(line string) (float64, bool) {
	if line == "" {
		return 0, false
	}
	if line == "progress=end" {
		return 1, true
	}
	if value, ok := strings.CutPrefix(line, "out_time_us="); ok {
		return p.fromMicros(value)
	}
	if value, ok := strings.CutPrefix(line, "out_time_ms="); ok {
		// ffmpeg reports microseconds under this key as well.
		return p.fromMicros(value)
	}
	if m := timePattern.FindStringSubmatch(line); m != nil && p.duration > 0 {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		seconds, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return 0, false
		}
		elapsed := float64(hours)*3600 + float64(minutes)*60 + seconds
		return elapsed / p.duration.Seconds(), true
	}
	if m := percentPattern.FindStringSubmatch(line); m != nil {
		percent, err := strconv.ParseFloat(m[1], 64)
		if err != nil || percent > 100 {
			return 0, false
		}
		return percent / 100, true
	}
	return 0, false
}

func (p *ProgressParser) fromMicros(value string) (float64, bool) {
	if p.duration <= 0 {
		return 0, false
	}
	us, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	return float64(us) / float64(p.duration.Microseconds()), true
}

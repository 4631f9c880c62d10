package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"zero", 0, 5},
		{"negative", -1, 5},
		{"custom", 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(0.5, "encode video") {
		t.Error("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerStepChange(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(0, "encode video") {
		t.Error("first step should log")
	}
	if s.ShouldLog(0, "encode video") {
		t.Error("same step and bucket should not log")
	}
	if !s.ShouldLog(0, "  encode audio  ") {
		t.Error("new step should log")
	}
	if s.lastStep != "encode audio" {
		t.Errorf("lastStep = %q, want trimmed label", s.lastStep)
	}
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25)
	s.ShouldLog(0, "mux")
	steps := []struct {
		fraction float64
		want     bool
	}{
		{0.2, false},
		{0.25, true},
		{0.49, false},
		{0.5, true},
		{1.0, true},
		{1.3, false},
	}
	for _, st := range steps {
		if got := s.ShouldLog(st.fraction, "mux"); got != st.want {
			t.Fatalf("ShouldLog(%v) = %v, want %v", st.fraction, got, st.want)
		}
	}
}

func TestProgressSamplerUnknownFraction(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(-1, "extract subtitles") {
		t.Error("first call should log on step change")
	}
	if s.ShouldLog(-1, "extract subtitles") {
		t.Error("unknown fraction should not emit by itself")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(0.5, "encode video")
	s.Reset()
	if s.lastStep != "" || s.lastBucket != -1 {
		t.Fatalf("unexpected state after reset: %+v", s)
	}
	if !s.ShouldLog(0.5, "encode video") {
		t.Error("should log after reset")
	}
}

package logging

import "strings"

// ProgressSampler suppresses repetitive progress logs while preserving signal
// when steps change or the completed fraction crosses a bucket boundary.
type ProgressSampler struct {
	bucketSize float64
	lastStep   string
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when progress crosses
// bucket boundaries, expressed in percent (default 5%), or when the step
// changes.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress update should be logged. Fraction is in
// [0,1]; a negative value means unknown and only step changes emit.
func (s *ProgressSampler) ShouldLog(fraction float64, step string) bool {
	if s == nil {
		return true
	}
	step = strings.TrimSpace(step)
	emit := false
	if step != "" && step != s.lastStep {
		s.lastStep = step
		s.lastBucket = -1
		emit = true
	}
	if fraction >= 0 {
		percent := fraction * 100
		if percent > 100 {
			percent = 100
		}
		bucket := int(percent / s.bucketSize)
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears the sampler state.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastStep = ""
	s.lastBucket = -1
}

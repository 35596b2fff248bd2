package logging

// ProgressSampler thins batch progress logs to one line per step of
// completion. Callers serialize access.
type ProgressSampler struct {
	step float64
	next float64
}

// NewProgressSampler emits every step percent; non-positive steps use 10.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 10
	}
	return &ProgressSampler{step: step}
}

// Observe records done of total and reports the completion percent and
// whether it reached the next step. Completion always emits exactly once.
func (s *ProgressSampler) Observe(done, total int) (float64, bool) {
	percent := Percent(done, total)
	if s == nil {
		return percent, true
	}
	if s.next > 100 {
		return percent, false
	}
	if percent < s.next {
		return percent, false
	}
	if percent >= 100 {
		s.next = 101
		return percent, true
	}
	for s.next <= percent {
		s.next += s.step
	}
	if s.next > 100 {
		s.next = 100
	}
	return percent, true
}

// Percent converts done/total into a percentage; zero totals report 100.
func Percent(done, total int) float64 {
	if total <= 0 {
		return 100
	}
	return float64(done) * 100 / float64(total)
}

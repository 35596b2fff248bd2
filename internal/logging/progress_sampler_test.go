package logging

import "testing"

func TestProgressSamplerSteps(t *testing.T) {
	s := NewProgressSampler(25)
	var emitted []int
	for done := 0; done <= 8; done++ {
		if _, ok := s.Observe(done, 8); ok {
			emitted = append(emitted, done)
		}
	}
	want := []int{0, 2, 4, 6, 8}
	if len(emitted) != len(want) {
		t.Fatalf("emitted at %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted at %v, want %v", emitted, want)
		}
	}
	if _, ok := s.Observe(8, 8); ok {
		t.Fatal("completion must emit once")
	}
}

func TestProgressSamplerDefaultsAndNil(t *testing.T) {
	if s := NewProgressSampler(0); s.step != 10 {
		t.Fatalf("step = %v, want 10", s.step)
	}
	var s *ProgressSampler
	if p, ok := s.Observe(1, 2); !ok || p != 50 {
		t.Fatalf("nil sampler = (%v, %v)", p, ok)
	}
}

func TestProgressSamplerSkipsCrossedSteps(t *testing.T) {
	s := NewProgressSampler(10)
	if _, ok := s.Observe(0, 3); !ok {
		t.Fatal("start should emit")
	}
	if p, ok := s.Observe(2, 3); !ok || p < 66 {
		t.Fatalf("jump across steps = (%v, %v)", p, ok)
	}
	if _, ok := s.Observe(2, 3); ok {
		t.Fatal("same progress must not emit twice")
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(1, 4); got != 25 {
		t.Fatalf("Percent(1,4) = %v", got)
	}
	if got := Percent(0, 0); got != 100 {
		t.Fatalf("Percent(0,0) = %v", got)
	}
}

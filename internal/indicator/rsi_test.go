package indicator

import "testing"

func TestRSINotReadyBeforePeriod(t *testing.T) {
	r := NewRSI(14)
	for i := 0; i < 14; i++ {
		r.Update(float64(100 + i))
	}
	if _, ok := r.Value(); ok {
		t.Fatalf("rsi ready after %d samples, want unready", 14)
	}
}

func TestRSIExtremes(t *testing.T) {
	up := NewRSI(2)
	for _, c := range []float64{1, 2, 3, 4} {
		up.Update(c)
	}
	if v, ok := up.Value(); !ok || v != 100 {
		t.Fatalf("monotonic gains: rsi = %v ok=%v, want 100", v, ok)
	}

	down := NewRSI(2)
	for _, c := range []float64{4, 3, 2, 1} {
		down.Update(c)
	}
	if v, ok := down.Value(); !ok || v != 0 {
		t.Fatalf("monotonic losses: rsi = %v ok=%v, want 0", v, ok)
	}
}

func TestRSIMidrange(t *testing.T) {
	r := NewRSI(2)
	for _, c := range []float64{10, 11, 10, 11, 10} {
		r.Update(c)
	}
	v, ok := r.Value()
	if !ok {
		t.Fatalf("rsi not ready")
	}
	if v <= 0 || v >= 100 {
		t.Fatalf("alternating series rsi = %v, want interior value", v)
	}
}

func TestStochasticWarmupAndValues(t *testing.T) {
	s := NewStochastic(3, 2)
	s.Update(2, 0, 1)
	if _, _, _, _, ok := s.Values(); ok {
		t.Fatalf("stochastic ready too early")
	}
	s.Update(2, 0, 2)
	s.Update(2, 0, 2) // first %K = 100
	s.Update(2, 0, 0) // %K = 0, first %D = 50
	k, d, pk, _, ok := s.Values()
	if !ok {
		t.Fatalf("stochastic not ready")
	}
	if k != 0 || d != 50 || pk != 100 {
		t.Fatalf("k=%v d=%v prevK=%v, want 0 50 100", k, d, pk)
	}
}

package indicator

// Stochastic is a %K/%D oscillator with SMA smoothing on %D. It retains
// the previous pair of values so crossover direction can be detected.
type Stochastic struct {
	kPeriod int
	dPeriod int

	highs  []float64
	lows   []float64
	kVals  []float64
	k, d   float64
	prevK  float64
	prevD  float64
	kReady bool
	dReady bool
}

// NewStochastic creates a Stochastic(k, d) oscillator.
func NewStochastic(kPeriod, dPeriod int) *Stochastic {
	return &Stochastic{kPeriod: kPeriod, dPeriod: dPeriod}
}

// Update feeds one candle's high, low and close.
func (s *Stochastic) Update(high, low, close float64) {
	s.highs = append(s.highs, high)
	s.lows = append(s.lows, low)
	if len(s.highs) > s.kPeriod {
		s.highs = s.highs[1:]
		s.lows = s.lows[1:]
	}
	if len(s.highs) < s.kPeriod {
		return
	}

	hh, ll := s.highs[0], s.lows[0]
	for i := 1; i < len(s.highs); i++ {
		if s.highs[i] > hh {
			hh = s.highs[i]
		}
		if s.lows[i] < ll {
			ll = s.lows[i]
		}
	}

	k := 50.0
	if hh > ll {
		k = 100 * (close - ll) / (hh - ll)
	}

	s.prevK = s.k
	s.k = k
	if s.kReady {
		// previous value is only meaningful from the second %K on
	} else {
		s.prevK = k
		s.kReady = true
	}

	s.kVals = append(s.kVals, k)
	if len(s.kVals) > s.dPeriod {
		s.kVals = s.kVals[1:]
	}
	if len(s.kVals) == s.dPeriod {
		sum := 0.0
		for _, v := range s.kVals {
			sum += v
		}
		s.prevD = s.d
		d := sum / float64(s.dPeriod)
		if !s.dReady {
			s.prevD = d
			s.dReady = true
		}
		s.d = d
	}
}

// Values returns the current and previous %K/%D and whether both lines
// are warm.
func (s *Stochastic) Values() (k, d, prevK, prevD float64, ok bool) {
	if !s.kReady || !s.dReady {
		return 0, 0, 0, 0, false
	}
	return s.k, s.d, s.prevK, s.prevD, true
}

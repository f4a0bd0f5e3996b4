package indicator

// RSI is a Wilder-smoothed relative strength index over closes.
type RSI struct {
	period    int
	prevClose float64
	avgGain   float64
	avgLoss   float64
	samples   int
}

// NewRSI creates an RSI with the given lookback period.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Update feeds one close price.
func (r *RSI) Update(close float64) {
	if r.samples == 0 {
		r.prevClose = close
		r.samples = 1
		return
	}

	gain, loss := 0.0, 0.0
	if d := close - r.prevClose; d > 0 {
		gain = d
	} else {
		loss = -d
	}
	r.prevClose = close

	if r.samples <= r.period {
		// accumulate the seed averages over the first full period
		r.avgGain += gain / float64(r.period)
		r.avgLoss += loss / float64(r.period)
	} else {
		p := float64(r.period)
		r.avgGain = (r.avgGain*(p-1) + gain) / p
		r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	}
	r.samples++
}

// Value returns the current RSI and whether enough samples were seen.
func (r *RSI) Value() (float64, bool) {
	if r.samples <= r.period {
		return 0, false
	}
	if r.avgLoss == 0 {
		return 100, true
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs), true
}

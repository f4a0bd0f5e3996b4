package repository

// Timeframe constants used across the pipeline, in seconds.
const (
	TF1m  = 60
	TF5m  = 300
	TF15m = 900
)

// IsValidTimeframe returns true if tf is a supported candle period.
func IsValidTimeframe(tf int) bool {
	switch tf {
	case TF1m, TF5m, TF15m:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default candle period.
func DefaultTimeframe() int { return TF1m }

// NormalizeTimeframe clamps a raw period to a valid timeframe (or default).
func NormalizeTimeframe(tf int) int {
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// ExpirationForTimeframe derives the order expiration from the signal's
// timeframe. Short signals expire on the next bucket; longer signals get
// their full period.
func ExpirationForTimeframe(tf int) int {
	if tf < TF1m {
		return TF1m
	}
	return tf
}

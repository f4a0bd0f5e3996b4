package indicator

import (
	"math"

	"PipFlow/internal/domain/models"
)

// ScorePriceAction classifies one candle's body into a momentum score:
// +2 strong bullish, +1 bullish, -1 bearish, -2 strong bearish, 0 noise.
// A candle is "strong" when its body dominates the range and the close
// sits inside the momentum zone near the candle's extreme.
func ScorePriceAction(c models.Candle, cfg PriceActionConfig) int {
	rng := c.High - c.Low
	if rng < cfg.MinRange || rng <= 0 {
		return 0
	}
	body := math.Abs(c.Close - c.Open)
	if body/rng < cfg.MinBodyRatio {
		return 0
	}

	zone := cfg.MomentumZone * rng
	if c.Close > c.Open {
		if c.High-c.Close <= zone {
			return 2
		}
		return 1
	}
	if c.Close-c.Low <= zone {
		return -2
	}
	return -1
}

package indicator

import (
	"testing"

	"PipFlow/internal/domain/models"
)

func paCfg() PriceActionConfig {
	return PriceActionConfig{MinBodyRatio: 0.65, MomentumZone: 0.20, MinRange: 0.00005}
}

func TestPriceActionStrongBullish(t *testing.T) {
	c := models.Candle{Open: 1.0, High: 1.002, Low: 1.0, Close: 1.002}
	if got := ScorePriceAction(c, paCfg()); got != 2 {
		t.Fatalf("score = %d, want 2", got)
	}
}

func TestPriceActionWeakBullish(t *testing.T) {
	// full body but close pulled back out of the momentum zone
	c := models.Candle{Open: 1.0, High: 1.002, Low: 1.0, Close: 1.0014}
	if got := ScorePriceAction(c, paCfg()); got != 1 {
		t.Fatalf("score = %d, want 1", got)
	}
}

func TestPriceActionStrongBearish(t *testing.T) {
	c := models.Candle{Open: 1.002, High: 1.002, Low: 1.0, Close: 1.0}
	if got := ScorePriceAction(c, paCfg()); got != -2 {
		t.Fatalf("score = %d, want -2", got)
	}
}

func TestPriceActionNoiseCandle(t *testing.T) {
	// range below the minimum size
	c := models.Candle{Open: 1.0, High: 1.00001, Low: 1.0, Close: 1.00001}
	if got := ScorePriceAction(c, paCfg()); got != 0 {
		t.Fatalf("tiny range score = %d, want 0", got)
	}
	// doji: body ratio below threshold
	c = models.Candle{Open: 1.0, High: 1.002, Low: 0.999, Close: 1.0002}
	if got := ScorePriceAction(c, paCfg()); got != 0 {
		t.Fatalf("doji score = %d, want 0", got)
	}
}

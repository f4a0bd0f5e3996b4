package indicator

import (
	"testing"

	"PipFlow/internal/domain/models"
)

// single strategic timeframe so price action alone can cross the gate
func testCfg() Config {
	cfg := DefaultConfig()
	cfg.StrategicTimeframes = []TimeframeWeight{{Seconds: 60, Weight: 1.0}}
	cfg.DecisionTimeframe = 60
	cfg.TacticalTimeframe = 60
	cfg.StrategicThreshold = 2.0
	cfg.FinalThreshold = 3.0
	return cfg
}

func bullish(ts int64) models.Candle {
	return models.Candle{Asset: "EURUSD", Timeframe: 60, Open: 1.0, High: 1.002, Low: 1.0, Close: 1.002, Volume: 5, Time: ts}
}

func bearish(ts int64) models.Candle {
	return models.Candle{Asset: "EURUSD", Timeframe: 60, Open: 1.002, High: 1.002, Low: 1.0, Close: 1.0, Volume: 5, Time: ts}
}

func doji(ts int64, close float64) models.Candle {
	return models.Candle{Asset: "EURUSD", Timeframe: 60, Open: close, High: close + 0.002, Low: close - 0.002, Close: close + 0.0002, Volume: 5, Time: ts}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigRejectsUnknownDecisionTimeframe(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DecisionTimeframe = 42
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for decision timeframe")
	}
}

func TestEngineEmitsBuyOnStrongCandle(t *testing.T) {
	var got []models.Signal
	e := NewEngine("EURUSD", testCfg(), func(s models.Signal) { got = append(got, s) }, nil)

	// strong bullish candle: price action +2 × weight 1.5 = 3.0 ≥ thresholds
	e.OnCandleClose(bullish(60))

	if len(got) != 1 {
		t.Fatalf("emitted %d signals, want 1", len(got))
	}
	sig := got[0]
	if sig.Decision != models.DecisionBuy {
		t.Fatalf("decision = %s, want buy", sig.Decision)
	}
	want := 3.0 / (3.0 * 1.5)
	if diff := sig.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("confidence = %v, want %v", sig.Confidence, want)
	}
}

func TestEngineEmitsSellOnStrongBearish(t *testing.T) {
	var got []models.Signal
	e := NewEngine("EURUSD", testCfg(), func(s models.Signal) { got = append(got, s) }, nil)
	e.OnCandleClose(bearish(60))
	if len(got) != 1 || got[0].Decision != models.DecisionSell {
		t.Fatalf("signals = %+v, want one sell", got)
	}
}

func TestEngineHoldsBelowThreshold(t *testing.T) {
	var got []models.Signal
	cfg := testCfg()
	cfg.StrategicThreshold = 3.5
	cfg.FinalThreshold = 3.5
	e := NewEngine("EURUSD", cfg, func(s models.Signal) { got = append(got, s) }, nil)
	e.OnCandleClose(bullish(60)) // score 3.0 < 3.5
	if len(got) != 0 {
		t.Fatalf("emitted %d signals below threshold", len(got))
	}
}

func TestEngineScoreResetAfterSignal(t *testing.T) {
	var got []models.Signal
	e := NewEngine("EURUSD", testCfg(), func(s models.Signal) { got = append(got, s) }, nil)
	e.OnCandleClose(bullish(60))
	if len(got) != 1 {
		t.Fatalf("setup: expected first signal")
	}
	// a neutral close must not ride on the previous timeframe score
	e.OnCandleClose(doji(120, 1.001))
	if len(got) != 1 {
		t.Fatalf("neutral close re-triggered a signal")
	}
}

func TestTacticalBonusLiftsMarginalSignal(t *testing.T) {
	var got []models.Signal
	cfg := testCfg()
	cfg.TacticalRSIPeriod = 2
	cfg.StrategicThreshold = 3.0
	cfg.FinalThreshold = 3.5 // price action alone (3.0) cannot pass
	cfg.TacticalBonus = 1.0
	e := NewEngine("EURUSD", cfg, func(s models.Signal) { got = append(got, s) }, nil)

	// warm the tactical RSI with rising neutral closes
	e.OnCandleClose(doji(60, 1.0000))
	e.OnCandleClose(doji(120, 1.0010))
	if len(got) != 0 {
		t.Fatalf("warmup emitted signals")
	}
	// rising series keeps tactical RSI at 100 > upper bound: final 3.0+1.0
	e.OnCandleClose(bullish(180))
	if len(got) != 1 || got[0].Decision != models.DecisionBuy {
		t.Fatalf("signals = %+v, want one buy via tactical bonus", got)
	}
}

func TestPrimingNeverEmits(t *testing.T) {
	var got []models.Signal
	e := NewEngine("EURUSD", testCfg(), func(s models.Signal) { got = append(got, s) }, nil)
	history := []models.Candle{bullish(60), bullish(120), bullish(180)}
	e.PrimeHistory(60, history)
	if len(got) != 0 {
		t.Fatalf("priming emitted %d signals", len(got))
	}
	if e.LastPrice() != 0 {
		t.Fatalf("priming should not move last price")
	}
}

func TestIgnoresUnknownTimeframe(t *testing.T) {
	var got []models.Signal
	e := NewEngine("EURUSD", testCfg(), func(s models.Signal) { got = append(got, s) }, nil)
	c := bullish(60)
	c.Timeframe = 7
	e.OnCandleClose(c)
	if len(got) != 0 || e.Closes() != 0 {
		t.Fatalf("unknown timeframe was processed")
	}
}

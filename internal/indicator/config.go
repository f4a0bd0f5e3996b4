package indicator

import "fmt"

// TimeframeWeight binds one strategic candle period to its score weight.
type TimeframeWeight struct {
	Seconds int
	Weight  float64
}

// IndicatorWeights are the fixed per-indicator weights applied inside each
// strategic timeframe.
type IndicatorWeights struct {
	PriceAction float64
	RSI         float64
	Stochastic  float64
}

// PriceActionConfig holds the candle-body classification thresholds.
type PriceActionConfig struct {
	MinBodyRatio float64 // body/range below this scores 0
	MomentumZone float64 // close within this fraction of range from the extreme is "strong"
	MinRange     float64 // candles smaller than this are noise
}

// Config is the immutable engine configuration, validated at construction.
type Config struct {
	StrategicTimeframes []TimeframeWeight
	DecisionTimeframe   int
	TacticalTimeframe   int
	HistorySize         int

	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64

	StochKPeriod  int
	StochDPeriod  int
	StochLowZone  float64
	StochHighZone float64

	TacticalRSIPeriod  int
	TacticalUpperBound float64
	TacticalLowerBound float64
	TacticalBonus      float64

	Weights     IndicatorWeights
	PriceAction PriceActionConfig

	StrategicThreshold float64
	FinalThreshold     float64
}

// DefaultConfig returns the production defaults: three strategic
// timeframes weighted toward the longer horizons, with the one-minute
// close as the decision trigger.
func DefaultConfig() Config {
	return Config{
		StrategicTimeframes: []TimeframeWeight{
			{Seconds: 60, Weight: 0.75},
			{Seconds: 300, Weight: 1.5},
			{Seconds: 900, Weight: 3.0},
		},
		DecisionTimeframe: 60,
		TacticalTimeframe: 60,
		HistorySize:       100,

		RSIPeriod:     14,
		RSIOversold:   35,
		RSIOverbought: 65,

		StochKPeriod:  14,
		StochDPeriod:  3,
		StochLowZone:  30,
		StochHighZone: 70,

		TacticalRSIPeriod:  24,
		TacticalUpperBound: 55,
		TacticalLowerBound: 45,
		TacticalBonus:      1.0,

		Weights: IndicatorWeights{
			PriceAction: 1.5,
			RSI:         1.0,
			Stochastic:  1.0,
		},
		PriceAction: PriceActionConfig{
			MinBodyRatio: 0.65,
			MomentumZone: 0.20,
			MinRange:     0.00005,
		},

		StrategicThreshold: 4.0,
		FinalThreshold:     6.0,
	}
}

// Validate checks the configuration is coherent.
func (c Config) Validate() error {
	if len(c.StrategicTimeframes) == 0 {
		return fmt.Errorf("at least one strategic timeframe is required")
	}
	decisionOK := false
	for _, tw := range c.StrategicTimeframes {
		if tw.Seconds <= 0 {
			return fmt.Errorf("timeframe must be positive, got %d", tw.Seconds)
		}
		if tw.Weight <= 0 {
			return fmt.Errorf("timeframe %d weight must be positive", tw.Seconds)
		}
		if tw.Seconds == c.DecisionTimeframe {
			decisionOK = true
		}
	}
	if !decisionOK {
		return fmt.Errorf("decision timeframe %d is not a strategic timeframe", c.DecisionTimeframe)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("history size must be positive")
	}
	if c.RSIPeriod <= 1 || c.TacticalRSIPeriod <= 1 {
		return fmt.Errorf("rsi periods must be > 1")
	}
	if c.StochKPeriod <= 1 || c.StochDPeriod < 1 {
		return fmt.Errorf("stochastic periods invalid")
	}
	if c.RSIOversold >= c.RSIOverbought {
		return fmt.Errorf("rsi oversold must be below overbought")
	}
	if c.TacticalLowerBound >= c.TacticalUpperBound {
		return fmt.Errorf("tactical lower bound must be below upper bound")
	}
	if c.StrategicThreshold <= 0 || c.FinalThreshold <= 0 {
		return fmt.Errorf("thresholds must be positive")
	}
	if c.FinalThreshold < c.StrategicThreshold {
		return fmt.Errorf("final threshold must be >= strategic threshold")
	}
	return nil
}

// TimeframeWeightFor returns the weight for a timeframe (0 if unknown).
func (c Config) TimeframeWeightFor(tf int) float64 {
	for _, tw := range c.StrategicTimeframes {
		if tw.Seconds == tf {
			return tw.Weight
		}
	}
	return 0
}

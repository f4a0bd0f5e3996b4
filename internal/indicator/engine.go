package indicator

import (
	"fmt"
	"math"

	"PipFlow/internal/domain/models"
	applogger "PipFlow/pkg/logger"
)

// timeframeState is the strategic state for one candle period: bounded
// OHLC history, oscillators, and the last computed score. The score is
// refreshed on that timeframe's close and zeroed after a signal fires so
// the very next close of a different timeframe cannot re-trigger on stale
// contributions.
type timeframeState struct {
	weight  float64
	history []models.Candle
	rsi     *RSI
	stoch   *Stochastic
	score   float64
}

// Engine holds the two-layer indicator state for one asset and emits
// signals on decision-timeframe closes.
type Engine struct {
	asset    string
	cfg      Config
	states   map[int]*timeframeState
	tactical *RSI
	emit     func(models.Signal)
	logger   *applogger.Logger

	lastPrice float64
	closes    uint64
}

// NewEngine creates an Engine for one asset. cfg must already be
// validated; the router's factory does this once at wiring time.
func NewEngine(asset string, cfg Config, emit func(models.Signal), logger *applogger.Logger) *Engine {
	states := make(map[int]*timeframeState, len(cfg.StrategicTimeframes))
	for _, tw := range cfg.StrategicTimeframes {
		states[tw.Seconds] = &timeframeState{
			weight: tw.Weight,
			rsi:    NewRSI(cfg.RSIPeriod),
			stoch:  NewStochastic(cfg.StochKPeriod, cfg.StochDPeriod),
		}
	}
	return &Engine{
		asset:    asset,
		cfg:      cfg,
		states:   states,
		tactical: NewRSI(cfg.TacticalRSIPeriod),
		emit:     emit,
		logger:   logger,
	}
}

// OnCandleClose feeds one closed candle. Non-strategic timeframes are
// ignored. A close of the decision timeframe triggers evaluation.
func (e *Engine) OnCandleClose(c models.Candle) {
	if c.Timeframe == e.cfg.TacticalTimeframe {
		e.tactical.Update(c.Close)
	}

	st := e.states[c.Timeframe]
	if st == nil {
		return
	}
	e.closes++
	e.lastPrice = c.Close
	e.push(st, c)
	st.score = e.timeframeScore(st, c)

	if c.Timeframe == e.cfg.DecisionTimeframe {
		e.evaluate(c)
	}
}

// OnLiveCandle tracks the forming candle's close for observability only.
func (e *Engine) OnLiveCandle(c models.Candle) {
	e.lastPrice = c.Close
}

// PrimeHistory replays historical candles into the indicator state
// without evaluating. Signals can therefore never fire from replay.
func (e *Engine) PrimeHistory(timeframe int, history []models.Candle) {
	if timeframe == e.cfg.TacticalTimeframe {
		for _, c := range history {
			e.tactical.Update(c.Close)
		}
	}
	st := e.states[timeframe]
	if st == nil {
		return
	}
	for _, c := range history {
		e.push(st, c)
	}
	if e.logger != nil {
		e.logger.Debug("indicator history primed",
			applogger.String("asset", e.asset),
			applogger.Int("timeframe", timeframe),
			applogger.Int("candles", len(history)),
		)
	}
}

// LastPrice returns the most recent observed close.
func (e *Engine) LastPrice() float64 { return e.lastPrice }

// Closes returns the number of strategic closes processed.
func (e *Engine) Closes() uint64 { return e.closes }

func (e *Engine) push(st *timeframeState, c models.Candle) {
	st.history = append(st.history, c)
	if len(st.history) > e.cfg.HistorySize {
		st.history = st.history[1:]
	}
	st.rsi.Update(c.Close)
	st.stoch.Update(c.High, c.Low, c.Close)
}

// timeframeScore combines the three sub-scores of one timeframe under the
// per-indicator weights, scaled by the timeframe weight.
func (e *Engine) timeframeScore(st *timeframeState, c models.Candle) float64 {
	pa := float64(ScorePriceAction(c, e.cfg.PriceAction))

	rsiScore := 0.0
	if v, ok := st.rsi.Value(); ok {
		if v < e.cfg.RSIOversold {
			rsiScore = 1
		} else if v > e.cfg.RSIOverbought {
			rsiScore = -1
		}
	}

	stochScore := 0.0
	if k, d, pk, pd, ok := st.stoch.Values(); ok {
		switch {
		case pk <= pd && k > d && k < e.cfg.StochLowZone:
			stochScore = 2
		case pk >= pd && k < d && k > e.cfg.StochHighZone:
			stochScore = -2
		}
	}

	w := e.cfg.Weights
	raw := pa*w.PriceAction + rsiScore*w.RSI + stochScore*w.Stochastic
	return raw * st.weight
}

// evaluate runs on each decision-timeframe close: sum the stored strategic
// scores, gate on the strategic threshold, apply tactical confirmation as
// a bonus, then compare against the final threshold.
func (e *Engine) evaluate(trigger models.Candle) {
	strategic := 0.0
	for _, st := range e.states {
		strategic += st.score
	}
	if math.Abs(strategic) < e.cfg.StrategicThreshold {
		return
	}

	final := strategic
	confirmed := ""
	if v, ok := e.tactical.Value(); ok {
		if strategic > 0 && v > e.cfg.TacticalUpperBound {
			final += e.cfg.TacticalBonus
			confirmed = "tactical-bull"
		} else if strategic < 0 && v < e.cfg.TacticalLowerBound {
			final -= e.cfg.TacticalBonus
			confirmed = "tactical-bear"
		}
	}

	var decision models.Decision
	switch {
	case final >= e.cfg.FinalThreshold:
		decision = models.DecisionBuy
	case final <= -e.cfg.FinalThreshold:
		decision = models.DecisionSell
	default:
		return
	}

	confidence := math.Min(1, math.Abs(final)/(e.cfg.FinalThreshold*1.5))
	reason := fmt.Sprintf("strategic=%.2f final=%.2f", strategic, final)
	if confirmed != "" {
		reason += " " + confirmed
	}

	sig := models.Signal{
		Asset:      e.asset,
		Timeframe:  trigger.Timeframe,
		Decision:   decision,
		Confidence: confidence,
		Reason:     reason,
		Candle:     trigger,
	}

	// avoid re-triggering on the next close of another strategic timeframe
	for _, st := range e.states {
		st.score = 0
	}

	if e.logger != nil {
		e.logger.Info("signal emitted",
			applogger.String("asset", e.asset),
			applogger.String("decision", string(decision)),
			applogger.String("reason", reason),
		)
	}
	if e.emit != nil {
		e.emit(sig)
	}
}

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal     *prometheus.CounterVec
	droppedTotal   *prometheus.CounterVec
	candlesClosed  *prometheus.CounterVec
	signalsTotal   *prometheus.CounterVec
	decisionsTotal *prometheus.CounterVec
	outcomesTotal  *prometheus.CounterVec
	pendingTrades  prometheus.Gauge
	errorsTotal    *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipflow_ticks_total",
				Help: "Total ticks accepted into the pipeline",
			},
			[]string{"asset"},
		),
		droppedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipflow_ticks_dropped_total",
				Help: "Total ticks dropped before aggregation",
			},
			[]string{"reason"},
		),
		candlesClosed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipflow_candles_closed_total",
				Help: "Total candles closed per asset and timeframe",
			},
			[]string{"asset", "timeframe"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipflow_signals_total",
				Help: "Total signals emitted by the indicator engines",
			},
			[]string{"asset", "decision"},
		),
		decisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipflow_decisions_total",
				Help: "Total decisions approved by the funnel",
			},
			[]string{"asset"},
		),
		outcomesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipflow_trade_outcomes_total",
				Help: "Total completed trades by result",
			},
			[]string{"result"},
		),
		pendingTrades: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipflow_pending_trades",
				Help: "Trades currently awaiting correlation",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipflow_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pipflow_last_price",
				Help: "Last observed price for an asset",
			},
			[]string{"asset"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipflow_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTick counts an accepted tick.
func (r *Recorder) RecordTick(asset string) {
	r.ticksTotal.WithLabelValues(asset).Inc()
}

// RecordDropped counts a dropped tick.
func (r *Recorder) RecordDropped(kind string) {
	r.droppedTotal.WithLabelValues(kind).Inc()
}

// RecordCandleClosed counts a closed candle.
func (r *Recorder) RecordCandleClosed(asset string, timeframe int) {
	r.candlesClosed.WithLabelValues(asset, strconv.Itoa(timeframe)).Inc()
}

// RecordSignal counts an emitted signal.
func (r *Recorder) RecordSignal(asset string, decision string) {
	r.signalsTotal.WithLabelValues(asset, decision).Inc()
}

// RecordDecision counts an approved decision.
func (r *Recorder) RecordDecision(asset string) {
	r.decisionsTotal.WithLabelValues(asset).Inc()
}

// RecordOutcome counts a completed trade.
func (r *Recorder) RecordOutcome(win bool) {
	result := "loss"
	if win {
		result = "win"
	}
	r.outcomesTotal.WithLabelValues(result).Inc()
}

// RecordPendingTrades sets the pending trade gauge.
func (r *Recorder) RecordPendingTrades(n int) {
	r.pendingTrades.Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for an asset.
func (r *Recorder) RecordLastPrice(asset string, price float64) {
	r.lastPrice.WithLabelValues(asset).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

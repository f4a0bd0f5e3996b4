package candles

import (
	"PipFlow/internal/domain/models"
)

// Builder aggregates in-order ticks into OHLCV candles for one
// (asset, timeframe) pair. Exactly one candle is open at a time; a tick
// landing in a later bucket closes it and opens the next. In priming mode
// (historical replay) a close is never emitted, the state only
// forward-fills.
type Builder struct {
	asset   string
	period  int64
	current *models.Candle
	onClose func(models.Candle)
	onLive  func(models.Candle)
}

// NewBuilder creates a Builder emitting closed candles to onClose.
func NewBuilder(asset string, period int, onClose func(models.Candle)) *Builder {
	return &Builder{
		asset:   asset,
		period:  int64(period),
		onClose: onClose,
	}
}

// SetLiveFunc enables live-candle emission on every applied tick.
func (b *Builder) SetLiveFunc(fn func(models.Candle)) { b.onLive = fn }

// AddTick applies one price observation. Ticks must arrive in sequence
// order; the sequencer upstream guarantees this.
func (b *Builder) AddTick(price float64, timestamp int64, priming bool) {
	bucket := (timestamp / b.period) * b.period

	switch {
	case b.current == nil:
		b.open(bucket, price)
	case bucket > b.current.Time && !priming:
		closed := *b.current
		b.current = nil
		if b.onClose != nil {
			b.onClose(closed)
		}
		b.open(bucket, price)
	default:
		b.current.High = max(b.current.High, price)
		b.current.Low = min(b.current.Low, price)
		b.current.Close = price
		b.current.Volume++
	}

	if b.onLive != nil && !priming {
		b.onLive(*b.current)
	}
}

// Seed replaces the open candle with a historical forming candle so the
// first live close after startup is not truncated.
func (b *Builder) Seed(c models.Candle) {
	c.Asset = b.asset
	c.Timeframe = int(b.period)
	b.current = &c
}

// Current returns a copy of the open candle, if any.
func (b *Builder) Current() (models.Candle, bool) {
	if b.current == nil {
		return models.Candle{}, false
	}
	return *b.current, true
}

func (b *Builder) open(bucket int64, price float64) {
	b.current = &models.Candle{
		Asset:     b.asset,
		Timeframe: int(b.period),
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    1,
		Time:      bucket,
	}
}

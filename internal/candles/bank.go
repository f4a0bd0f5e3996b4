package candles

import (
	"PipFlow/internal/domain/models"
)

// Bank owns one Builder per (asset, timeframe), creating them lazily as
// assets appear in the tick stream. All configured timeframes see every
// tick of an asset.
type Bank struct {
	periods []int
	onClose func(models.Candle)
	onLive  func(models.Candle)
	byAsset map[string]map[int]*Builder
}

// NewBank creates a Bank over the configured candle periods. onLive may be
// nil to disable live-candle emission.
func NewBank(periods []int, onClose, onLive func(models.Candle)) *Bank {
	return &Bank{
		periods: periods,
		onClose: onClose,
		onLive:  onLive,
		byAsset: make(map[string]map[int]*Builder),
	}
}

// Apply routes one in-order tick to every timeframe builder of its asset.
func (bk *Bank) Apply(t models.Tick, priming bool) {
	for _, b := range bk.builders(t.Asset) {
		b.AddTick(t.Price, t.Timestamp, priming)
	}
}

// Seed installs a historical forming candle into the matching builder.
func (bk *Bank) Seed(asset string, timeframe int, c models.Candle) {
	if b := bk.builders(asset)[timeframe]; b != nil {
		b.Seed(c)
	}
}

// Current returns the open candle for one (asset, timeframe).
func (bk *Bank) Current(asset string, timeframe int) (models.Candle, bool) {
	m := bk.byAsset[asset]
	if m == nil || m[timeframe] == nil {
		return models.Candle{}, false
	}
	return m[timeframe].Current()
}

func (bk *Bank) builders(asset string) map[int]*Builder {
	m := bk.byAsset[asset]
	if m == nil {
		m = make(map[int]*Builder, len(bk.periods))
		for _, p := range bk.periods {
			b := NewBuilder(asset, p, bk.onClose)
			if bk.onLive != nil {
				b.SetLiveFunc(bk.onLive)
			}
			m[p] = b
		}
		bk.byAsset[asset] = m
	}
	return m
}

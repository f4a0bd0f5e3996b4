package candles

import (
	"PipFlow/internal/domain/models"
)

// Engine is the per-asset consumer of routed candles.
type Engine interface {
	OnCandleClose(c models.Candle)
	OnLiveCandle(c models.Candle)
	PrimeHistory(timeframe int, history []models.Candle)
}

// Router fans closed and live candles out to per-asset engines, creating
// each engine lazily on first sight of its asset.
type Router struct {
	factory func(asset string) Engine
	engines map[string]Engine
}

// NewRouter creates a Router with an engine factory.
func NewRouter(factory func(asset string) Engine) *Router {
	return &Router{
		factory: factory,
		engines: make(map[string]Engine),
	}
}

// RouteClose delivers a closed candle to its asset's engine.
func (r *Router) RouteClose(c models.Candle) {
	r.engine(c.Asset).OnCandleClose(c)
}

// RouteLive delivers a live (still forming) candle update.
func (r *Router) RouteLive(c models.Candle) {
	r.engine(c.Asset).OnLiveCandle(c)
}

// Prime replays historical candles into an asset's engine without
// triggering signal evaluation.
func (r *Router) Prime(asset string, timeframe int, history []models.Candle) {
	r.engine(asset).PrimeHistory(timeframe, history)
}

// Assets lists the assets with an instantiated engine.
func (r *Router) Assets() []string {
	out := make([]string, 0, len(r.engines))
	for a := range r.engines {
		out = append(out, a)
	}
	return out
}

func (r *Router) engine(asset string) Engine {
	e, ok := r.engines[asset]
	if !ok {
		e = r.factory(asset)
		r.engines[asset] = e
	}
	return e
}

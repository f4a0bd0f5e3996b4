package candles

import (
	"testing"

	"PipFlow/internal/domain/models"
)

type recordingEngine struct {
	closes, lives, primed int
}

func (e *recordingEngine) OnCandleClose(models.Candle)      { e.closes++ }
func (e *recordingEngine) OnLiveCandle(models.Candle)       { e.lives++ }
func (e *recordingEngine) PrimeHistory(int, []models.Candle) { e.primed++ }

func TestRouterLazyCreation(t *testing.T) {
	created := map[string]*recordingEngine{}
	r := NewRouter(func(asset string) Engine {
		e := &recordingEngine{}
		created[asset] = e
		return e
	})

	r.RouteClose(models.Candle{Asset: "EURUSD"})
	r.RouteClose(models.Candle{Asset: "EURUSD"})
	r.RouteLive(models.Candle{Asset: "GBPUSD"})
	r.Prime("EURUSD", 60, nil)

	if len(created) != 2 {
		t.Fatalf("created %d engines, want 2", len(created))
	}
	if created["EURUSD"].closes != 2 || created["EURUSD"].primed != 1 {
		t.Fatalf("EURUSD engine = %+v", created["EURUSD"])
	}
	if created["GBPUSD"].lives != 1 {
		t.Fatalf("GBPUSD engine = %+v", created["GBPUSD"])
	}
}

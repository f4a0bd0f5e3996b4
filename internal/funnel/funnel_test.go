package funnel

import (
	"testing"
	"time"

	"PipFlow/internal/domain/models"
)

func testCfg() Config {
	cfg := DefaultConfig()
	cfg.Window = 30 * time.Millisecond
	return cfg
}

func sig(asset string, conf float64) models.Signal {
	return models.Signal{Asset: asset, Timeframe: 60, Decision: models.DecisionBuy, Confidence: conf}
}

func collect() (chan models.TradeDecision, func(models.TradeDecision)) {
	ch := make(chan models.TradeDecision, 8)
	return ch, func(d models.TradeDecision) { ch <- d }
}

func TestWindowPicksHighestScore(t *testing.T) {
	ch, emit := collect()
	f := New(testCfg(), 1000, emit)

	f.Submit(sig("A", 0.3))
	f.Submit(sig("B", 0.9))
	f.Submit(sig("C", 0.5))

	select {
	case d := <-ch:
		if d.Asset != "B" {
			t.Fatalf("chose %s, want B", d.Asset)
		}
	case <-time.After(time.Second):
		t.Fatalf("no decision emitted")
	}

	select {
	case d := <-ch:
		t.Fatalf("second decision emitted: %+v", d)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEmptyWindowEmitsNothing(t *testing.T) {
	ch, emit := collect()
	_ = New(testCfg(), 1000, emit)
	select {
	case d := <-ch:
		t.Fatalf("decision without signals: %+v", d)
	case <-time.After(100 * time.Millisecond):
	}
	_ = ch
}

func TestTieBrokenByFirstSeen(t *testing.T) {
	ch, emit := collect()
	f := New(testCfg(), 1000, emit)
	f.Submit(sig("FIRST", 0.7))
	f.Submit(sig("SECOND", 0.7))

	select {
	case d := <-ch:
		if d.Asset != "FIRST" {
			t.Fatalf("chose %s, want FIRST on tie", d.Asset)
		}
	case <-time.After(time.Second):
		t.Fatalf("no decision emitted")
	}
}

func TestSubmitDuringOpenWindowJoinsIt(t *testing.T) {
	ch, emit := collect()
	f := New(testCfg(), 1000, emit)
	f.Submit(sig("A", 0.2))
	time.Sleep(10 * time.Millisecond)
	f.Submit(sig("B", 0.8)) // same window, no second timer

	d := <-ch
	if d.Asset != "B" {
		t.Fatalf("chose %s, want B", d.Asset)
	}
	select {
	case d := <-ch:
		t.Fatalf("extra decision: %+v", d)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestExecutionParamsClamped(t *testing.T) {
	ch, emit := collect()
	cfg := testCfg()
	cfg.BaseRiskPct = 0.5
	cfg.MaxInvestment = 40
	f := New(cfg, 1000, emit)
	f.Submit(sig("A", 0.9))

	d := <-ch
	if d.Params.Investment != 40 {
		t.Fatalf("investment = %v, want clamped 40", d.Params.Investment)
	}
	if d.Params.Expiration != 60 {
		t.Fatalf("expiration = %d, want 60", d.Params.Expiration)
	}
	if d.Params.DelayMs < cfg.DelayMinMs || d.Params.DelayMs >= cfg.DelayMaxMs {
		t.Fatalf("delay %d outside [%d,%d)", d.Params.DelayMs, cfg.DelayMinMs, cfg.DelayMaxMs)
	}
}

func TestPersonaTransitions(t *testing.T) {
	b := NewBehavior(100)
	if b.Persona() != PersonaCalm {
		t.Fatalf("initial persona = %s", b.Persona())
	}
	b.RecordOutcome(true, 5)
	b.RecordOutcome(true, 5)
	if b.Persona() != PersonaFocused {
		t.Fatalf("after two wins persona = %s", b.Persona())
	}
	if b.InvestmentMultiplier() != 1.25 {
		t.Fatalf("focused multiplier = %v", b.InvestmentMultiplier())
	}
	b.RecordOutcome(false, -5)
	if b.Persona() != PersonaCalm {
		t.Fatalf("single loss persona = %s", b.Persona())
	}
	b.RecordOutcome(false, -5)
	if b.Persona() != PersonaCautious {
		t.Fatalf("after two losses persona = %s", b.Persona())
	}
	if b.Balance() != 100 {
		t.Fatalf("balance = %v, want 100", b.Balance())
	}
}

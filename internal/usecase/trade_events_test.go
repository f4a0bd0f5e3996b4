package usecase

import (
	"context"
	"testing"

	"PipFlow/internal/domain/models"
	"PipFlow/internal/trades"
)

func TestTradeEventsCorrelate(t *testing.T) {
	ctx := context.Background()
	var outcomes []models.TradeOutcome
	m := trades.NewManager(func(o models.TradeOutcome) { outcomes = append(outcomes, o) })
	m.RegisterPendingTrade(ctx, "r1", models.Signal{Asset: "EURUSD"})

	h := NewTradeEventsHandler("trade-events", m, nil)

	opened := []byte(`{"type":"trade-opened","payload":{"requestId":"r1","uniqueId":"u1"}}`)
	if err := h.Handle(ctx, opened); err != nil {
		t.Fatalf("handle opened: %v", err)
	}
	result := []byte(`{"type":"deal-result","payload":{"id":"u1","profit":4.5}}`)
	if err := h.Handle(ctx, result); err != nil {
		t.Fatalf("handle result: %v", err)
	}

	if len(outcomes) != 1 || !outcomes[0].IsWin {
		t.Fatalf("outcomes = %+v, want one win", outcomes)
	}
}

func TestTradeEventsRejectMalformed(t *testing.T) {
	h := NewTradeEventsHandler("trade-events", trades.NewManager(nil), nil)
	if err := h.Handle(context.Background(), []byte("{broken")); err == nil {
		t.Fatalf("malformed envelope accepted")
	}
	if err := h.Handle(context.Background(), []byte(`{"type":"mystery","payload":{}}`)); err == nil {
		t.Fatalf("unknown event type accepted")
	}
}

func TestStatsRecentSignalsNewestFirst(t *testing.T) {
	s := NewStatsTracker(3)
	for _, a := range []string{"A", "B", "C", "D"} {
		s.SignalSeen(models.Signal{Asset: a})
	}
	got := s.RecentSignals(2)
	if len(got) != 2 || got[0].Asset != "D" || got[1].Asset != "C" {
		t.Fatalf("recent = %+v", got)
	}
	// ring capped at 3, oldest evicted
	all := s.RecentSignals(0)
	if len(all) != 3 || all[2].Asset != "B" {
		t.Fatalf("ring = %+v", all)
	}
	if s.Snapshot().Signals != 4 {
		t.Fatalf("signal count = %d", s.Snapshot().Signals)
	}
}

package harvester

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"PipFlow/internal/domain/models"
)

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	s := New("127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Listen(ctx); err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		s.Close()
	})
	return s, s.listener.Addr().String()
}

func writeLine(t *testing.T, conn net.Conn, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := conn.Write(append(b, '\n')); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestFramesDecoded(t *testing.T) {
	s, addr := startServer(t)
	frames, _ := s.Read(context.Background())

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	writeLine(t, conn, map[string]any{
		"type":    "pip",
		"payload": models.Tick{Asset: "EURUSD", Price: 1.08, Timestamp: 1700000000, SequenceID: 3},
	})

	select {
	case f := <-frames:
		if f.Type != FramePip {
			t.Fatalf("frame type = %q", f.Type)
		}
		tick, err := DecodePip(f)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if tick.Asset != "EURUSD" || tick.SequenceID != 3 {
			t.Fatalf("tick = %+v", tick)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame received")
	}
}

func TestMalformedLineSkipped(t *testing.T) {
	s, addr := startServer(t)
	frames, _ := s.Read(context.Background())

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("{not json\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	writeLine(t, conn, map[string]any{
		"type":    "balance",
		"payload": models.Balance{Demo: 1000},
	})

	select {
	case f := <-frames:
		if f.Type != FrameBalance {
			t.Fatalf("frame type = %q, malformed line not skipped", f.Type)
		}
		b, err := DecodeBalance(f)
		if err != nil || b.Demo != 1000 {
			t.Fatalf("balance = %+v err %v", b, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame after malformed line")
	}
}

func TestReconnectSupersedes(t *testing.T) {
	s, addr := startServer(t)
	frames, _ := s.Read(context.Background())

	first, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !s.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	second, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close()
	defer first.Close()

	// the old conn is closed server-side; frames keep flowing from the new one
	time.Sleep(50 * time.Millisecond)
	writeLine(t, second, map[string]any{
		"type":    "pip",
		"payload": models.Tick{Asset: "GBPUSD", Price: 1.27, Timestamp: 1700000001, SequenceID: 1},
	})

	select {
	case f := <-frames:
		tick, err := DecodePip(f)
		if err != nil || tick.Asset != "GBPUSD" {
			t.Fatalf("tick = %+v err %v", tick, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame from superseding connection")
	}
}

func TestHistoricalCandlesInheritBatchKeys(t *testing.T) {
	payload, _ := json.Marshal(HistoricalCandlesPayload{
		Asset:     "EURUSD",
		Timeframe: 60,
		Candles:   []models.Candle{{Close: 1.1, Time: 0}, {Close: 1.2, Time: 60}},
	})
	p, err := DecodeHistoricalCandles(models.Frame{Type: FrameHistoricalCandles, Payload: payload})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, c := range p.Candles {
		if c.Asset != "EURUSD" || c.Timeframe != 60 {
			t.Fatalf("candle missing batch keys: %+v", c)
		}
	}
}

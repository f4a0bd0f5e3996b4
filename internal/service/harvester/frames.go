package harvester

import (
	"encoding/json"
	"fmt"

	"PipFlow/internal/domain/models"
)

// Frame types emitted by the harvester.
const (
	FramePip               = "pip"
	FrameHistoricalCandles = "historical-candles"
	FrameTradeOpened       = "trade-opened"
	FrameDealResult        = "deal-result"
	FrameBalance           = "balance"
)

// HistoricalCandlesPayload carries a priming batch for one asset and
// timeframe. Candles are ordered oldest first; Current, when present, is
// the still-forming candle at the batch boundary.
type HistoricalCandlesPayload struct {
	Asset     string          `json:"asset"`
	Timeframe int             `json:"timeframe"`
	Candles   []models.Candle `json:"candles"`
	Current   *models.Candle  `json:"current,omitempty"`
}

// TradeOpenedPayload maps the caller's request id to the venue's id.
type TradeOpenedPayload struct {
	RequestID string `json:"requestId"`
	UniqueID  string `json:"uniqueId"`
}

// DecodePip decodes a pip frame payload.
func DecodePip(f models.Frame) (models.Tick, error) {
	var t models.Tick
	if err := json.Unmarshal(f.Payload, &t); err != nil {
		return models.Tick{}, fmt.Errorf("decode pip: %w", err)
	}
	return t, nil
}

// DecodeHistoricalCandles decodes a historical-candles frame payload.
func DecodeHistoricalCandles(f models.Frame) (HistoricalCandlesPayload, error) {
	var p HistoricalCandlesPayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		return HistoricalCandlesPayload{}, fmt.Errorf("decode historical candles: %w", err)
	}
	for i := range p.Candles {
		if p.Candles[i].Asset == "" {
			p.Candles[i].Asset = p.Asset
		}
		if p.Candles[i].Timeframe == 0 {
			p.Candles[i].Timeframe = p.Timeframe
		}
	}
	return p, nil
}

// DecodeTradeOpened decodes a trade-opened frame payload.
func DecodeTradeOpened(f models.Frame) (TradeOpenedPayload, error) {
	var p TradeOpenedPayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		return TradeOpenedPayload{}, fmt.Errorf("decode trade opened: %w", err)
	}
	return p, nil
}

// DecodeDealResult decodes a deal-result frame payload.
func DecodeDealResult(f models.Frame) (models.DealResult, error) {
	var r models.DealResult
	if err := json.Unmarshal(f.Payload, &r); err != nil {
		return models.DealResult{}, fmt.Errorf("decode deal result: %w", err)
	}
	return r, nil
}

// DecodeBalance decodes a balance frame payload.
func DecodeBalance(f models.Frame) (models.Balance, error) {
	var b models.Balance
	if err := json.Unmarshal(f.Payload, &b); err != nil {
		return models.Balance{}, fmt.Errorf("decode balance: %w", err)
	}
	return b, nil
}

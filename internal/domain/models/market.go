package models

import "encoding/json"

// Tick is a single timestamped price observation for an asset.
// Immutable once constructed; consumed exactly once per sequence id.
type Tick struct {
	Asset      string  `json:"asset"`
	Price      float64 `json:"price"`
	Timestamp  int64   `json:"timestamp"` // unix seconds, venue clock
	SequenceID uint64  `json:"sequence_id"`
}

// Candle is an OHLCV aggregate of ticks over a fixed time bucket.
// Mutated in place while open; immutable once closed.
type Candle struct {
	Asset     string  `json:"asset"`
	Timeframe int     `json:"timeframe"` // period in seconds
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    uint32  `json:"volume"`
	Time      int64   `json:"time"` // bucket start, unix seconds
}

// Balance carries the account balances reported by the venue session.
type Balance struct {
	Live float64 `json:"liveBalance"`
	Demo float64 `json:"demoBalance"`
}

// Frame is one envelope of the newline-delimited ingest protocol.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

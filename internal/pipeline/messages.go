package pipeline

import "PipFlow/internal/domain/models"

// MessageType discriminates worker messages.
type MessageType string

const (
	MsgStart              MessageType = "start"
	MsgPip                MessageType = "pip"
	MsgCandle             MessageType = "candle"
	MsgLiveCandle         MessageType = "liveCandle"
	MsgPrimeIndicators    MessageType = "prime-indicators"
	MsgPrimeCurrentCandle MessageType = "prime-current-candle"
)

// Message is the typed envelope passed between the pipeline workers. Only
// the fields relevant to its Type are populated.
type Message struct {
	Type      MessageType
	Tick      models.Tick
	Candle    models.Candle
	Asset     string
	Timeframe int
	History   []models.Candle
}

package models

// Decision is the direction attached to a signal or trade.
type Decision string

const (
	DecisionBuy  Decision = "buy"
	DecisionSell Decision = "sell"
	DecisionHold Decision = "hold"
)

// Signal is a candidate trade direction with confidence, produced by the
// indicator engine and consumed by the decision funnel.
type Signal struct {
	Asset      string   `json:"asset"`
	Timeframe  int      `json:"timeframe"`
	Decision   Decision `json:"decision"`
	Confidence float64  `json:"confidence"` // in [0,1]
	Reason     string   `json:"reason"`
	Candle     Candle   `json:"candle"`
}

// ExecutionParams are the order parameters derived from the chosen signal
// and the current behavioral state.
type ExecutionParams struct {
	DelayMs    int     `json:"delayMs"`
	Investment float64 `json:"investment"`
	Expiration int     `json:"expiration"` // seconds
}

// TradeDecision is the funnel's approved decision handed to the execution
// boundary. RequestID is assigned by the dispatcher at send time.
type TradeDecision struct {
	Asset     string          `json:"asset"`
	Decision  Decision        `json:"decision"`
	Params    ExecutionParams `json:"executionParams"`
	Signal    Signal          `json:"signal"`
	RequestID string          `json:"requestId,omitempty"`
}

package models

import "time"

// PendingStatus is the correlation phase of a pending trade.
type PendingStatus string

const (
	StatusAwaitingUniqueID PendingStatus = "awaiting_unique_id"
	StatusAwaitingResult   PendingStatus = "awaiting_result"
)

// PendingTrade is one in-flight order awaiting correlation. Created on
// dispatch, mapped to the venue id in phase one, removed on completion.
type PendingTrade struct {
	RequestID string        `json:"requestId"`
	UniqueID  string        `json:"uniqueId,omitempty"`
	Status    PendingStatus `json:"status"`
	Signal    Signal        `json:"signal"`
	OpenedAt  time.Time     `json:"openedAt"`
}

// DealResult is the venue's final report for one trade.
type DealResult struct {
	ID     string  `json:"id"`
	Profit float64 `json:"profit"`
	Asset  string  `json:"asset,omitempty"`
	Amount float64 `json:"amount,omitempty"`
}

// TradeOutcome is emitted exactly once per completed trade.
type TradeOutcome struct {
	RequestID string     `json:"requestId"`
	UniqueID  string     `json:"uniqueId"`
	IsWin     bool       `json:"isWin"`
	Result    DealResult `json:"result"`
	Signal    Signal     `json:"signal"`
	ClosedAt  time.Time  `json:"closedAt"`
}

package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"PipFlow/internal/domain/models"
	domrepo "PipFlow/internal/domain/repository"
	"PipFlow/internal/trades"
	pkgkafka "PipFlow/pkg/kafka"
)

// Trade event types mirrored from the execution boundary.
const (
	eventTradeOpened = "trade-opened"
	eventDealResult  = "deal-result"
)

// TradeEventsHandler consumes trade lifecycle events published by the
// execution boundary and feeds them into the correlator. It covers
// deployments where openings and results come back over Kafka instead of
// the harvester connection.
type TradeEventsHandler struct {
	topic   string
	manager *trades.Manager
	metrics domrepo.Metrics
}

// NewTradeEventsHandler creates a handler for topic.
func NewTradeEventsHandler(topic string, manager *trades.Manager, metrics domrepo.Metrics) *TradeEventsHandler {
	return &TradeEventsHandler{topic: topic, manager: manager, metrics: metrics}
}

func (h *TradeEventsHandler) Topic() string { return h.topic }

// Handle decodes one event envelope: {type, payload}.
func (h *TradeEventsHandler) Handle(ctx context.Context, b []byte) error {
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		h.recordError("consumer_unmarshal")
		return err
	}

	switch env.Type {
	case eventTradeOpened:
		var p struct {
			RequestID string `json:"requestId"`
			UniqueID  string `json:"uniqueId"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.recordError("consumer_unmarshal")
			return err
		}
		h.manager.MapTradeID(ctx, p.RequestID, p.UniqueID)
		return nil

	case eventDealResult:
		var r models.DealResult
		if err := json.Unmarshal(env.Payload, &r); err != nil {
			h.recordError("consumer_unmarshal")
			return err
		}
		h.manager.ProcessIndividualResult(ctx, r)
		return nil

	default:
		h.recordError("consumer_event_unknown")
		return fmt.Errorf("unknown trade event type %q", env.Type)
	}
}

func (h *TradeEventsHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

var _ pkgkafka.MessageHandler = (*TradeEventsHandler)(nil)

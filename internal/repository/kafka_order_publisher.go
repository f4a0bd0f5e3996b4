package repository

import (
	"context"

	"PipFlow/internal/domain/models"
	domrepo "PipFlow/internal/domain/repository"
	pkgkafka "PipFlow/pkg/kafka"
)

// KafkaOrderPublisher implements OrderPublisher over a shared producer.
// Orders and outcomes are keyed by asset so one asset's events stay on
// one partition.
type KafkaOrderPublisher struct {
	producer      *pkgkafka.Producer
	ordersTopic   string
	outcomesTopic string
}

// NewKafkaOrderPublisher creates a publisher writing to the given topics.
func NewKafkaOrderPublisher(producer *pkgkafka.Producer, ordersTopic, outcomesTopic string) *KafkaOrderPublisher {
	return &KafkaOrderPublisher{
		producer:      producer,
		ordersTopic:   ordersTopic,
		outcomesTopic: outcomesTopic,
	}
}

func (p *KafkaOrderPublisher) PublishOrder(ctx context.Context, d *models.TradeDecision) error {
	return p.producer.Publish(ctx, p.ordersTopic, []byte(d.Asset), d)
}

func (p *KafkaOrderPublisher) PublishOutcome(ctx context.Context, o *models.TradeOutcome) error {
	return p.producer.Publish(ctx, p.outcomesTopic, []byte(o.Signal.Asset), o)
}

func (p *KafkaOrderPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.OrderPublisher = (*KafkaOrderPublisher)(nil)

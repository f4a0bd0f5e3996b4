package repository

import (
	"context"

	"PipFlow/internal/domain/models"
	domrepo "PipFlow/internal/domain/repository"
	applogger "PipFlow/pkg/logger"
)

// LogOrderPublisher is the paper-trading publisher used when Kafka is
// disabled. Orders and outcomes are written to the log instead of a topic.
type LogOrderPublisher struct {
	logger *applogger.Logger
}

// NewLogOrderPublisher creates a log-only publisher.
func NewLogOrderPublisher(logger *applogger.Logger) *LogOrderPublisher {
	return &LogOrderPublisher{logger: logger}
}

func (p *LogOrderPublisher) PublishOrder(_ context.Context, d *models.TradeDecision) error {
	p.logger.Info("paper order",
		applogger.String("request_id", d.RequestID),
		applogger.String("asset", d.Asset),
		applogger.String("decision", string(d.Decision)),
		applogger.Any("investment", d.Params.Investment),
		applogger.Int("delay_ms", d.Params.DelayMs),
	)
	return nil
}

func (p *LogOrderPublisher) PublishOutcome(_ context.Context, o *models.TradeOutcome) error {
	p.logger.Info("paper outcome",
		applogger.String("request_id", o.RequestID),
		applogger.String("asset", o.Signal.Asset),
		applogger.Bool("is_win", o.IsWin),
		applogger.Any("profit", o.Result.Profit),
	)
	return nil
}

func (p *LogOrderPublisher) Close() error { return nil }

var _ domrepo.OrderPublisher = (*LogOrderPublisher)(nil)

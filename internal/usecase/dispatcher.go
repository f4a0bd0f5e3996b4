package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"PipFlow/internal/domain/models"
	domrepo "PipFlow/internal/domain/repository"
	"PipFlow/internal/trades"
	applogger "PipFlow/pkg/logger"
)

// Dispatcher carries approved decisions over the execution boundary. It
// assigns the request id, registers the pending trade, then publishes,
// in that order, so the venue's trade-opened event can always correlate.
type Dispatcher struct {
	publisher domrepo.OrderPublisher
	manager   *trades.Manager
	logger    *applogger.Logger
	metrics   domrepo.Metrics
	notify    func(models.TradeDecision)
}

// DispatcherOption configures Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the structured logger.
func WithDispatcherLogger(l *applogger.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// WithDispatcherMetrics sets the metrics recorder.
func WithDispatcherMetrics(m domrepo.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithDispatchNotify adds an observer for published decisions, used for
// telemetry fan-out.
func WithDispatchNotify(fn func(models.TradeDecision)) DispatcherOption {
	return func(d *Dispatcher) { d.notify = fn }
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(publisher domrepo.OrderPublisher, manager *trades.Manager, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{publisher: publisher, manager: manager}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch publishes one decision to the order topic.
func (d *Dispatcher) Dispatch(ctx context.Context, decision models.TradeDecision) error {
	decision.RequestID = uuid.NewString()
	d.manager.RegisterPendingTrade(ctx, decision.RequestID, decision.Signal)

	if err := d.publisher.PublishOrder(ctx, &decision); err != nil {
		if d.metrics != nil {
			d.metrics.RecordError("order_publish")
		}
		if d.logger != nil {
			d.logger.Error("order publish failed",
				applogger.String("request_id", decision.RequestID),
				applogger.String("asset", decision.Asset),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("dispatch order: %w", err)
	}

	if d.logger != nil {
		d.logger.Info("order dispatched",
			applogger.String("request_id", decision.RequestID),
			applogger.String("asset", decision.Asset),
			applogger.String("decision", string(decision.Decision)),
			applogger.Any("investment", decision.Params.Investment),
		)
	}
	if d.notify != nil {
		d.notify(decision)
	}
	return nil
}

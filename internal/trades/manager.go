package trades

import (
	"context"
	"sync"
	"time"

	"PipFlow/internal/domain/models"
	domrepo "PipFlow/internal/domain/repository"
	applogger "PipFlow/pkg/logger"
)

// Manager is the two-phase trade correlator. The venue assigns its own
// identifier asynchronously, so an order walks
// registered -> mapped -> completed, keyed first by the caller's
// requestId, then by the venue's uniqueId. The table is mutated from both
// the ingest path and the Kafka consumer, hence the mutex.
type Manager struct {
	mu        sync.Mutex
	pending   map[string]*models.PendingTrade
	emit      func(models.TradeOutcome)
	snapshots domrepo.TradeSnapshotStore
	logger    *applogger.Logger
	metrics   domrepo.Metrics
	nowFn     func() time.Time
}

// Option configures Manager.
type Option func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(mt domrepo.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithSnapshotStore mirrors pending entries to a durable store so a
// restart can restore in-flight correlations.
func WithSnapshotStore(s domrepo.TradeSnapshotStore) Option {
	return func(m *Manager) { m.snapshots = s }
}

// WithClock injects the clock source. Used by tests.
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		if fn != nil {
			m.nowFn = fn
		}
	}
}

// NewManager creates a Manager emitting completed trades to emit.
func NewManager(emit func(models.TradeOutcome), opts ...Option) *Manager {
	m := &Manager{
		pending: make(map[string]*models.PendingTrade),
		emit:    emit,
		nowFn:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterPendingTrade creates an entry awaiting the venue identifier.
// A duplicate requestId overwrites the previous entry; that matches the
// observed venue behavior but is surfaced as a warning.
func (m *Manager) RegisterPendingTrade(ctx context.Context, requestID string, sig models.Signal) {
	m.mu.Lock()
	if _, dup := m.pending[requestID]; dup {
		m.recordError("trade_register_overwrite")
		if m.logger != nil {
			m.logger.Warn("pending trade overwritten", applogger.String("request_id", requestID))
		}
	}
	entry := &models.PendingTrade{
		RequestID: requestID,
		Status:    models.StatusAwaitingUniqueID,
		Signal:    sig,
		OpenedAt:  m.nowFn(),
	}
	m.pending[requestID] = entry
	snapshot := *entry
	n := len(m.pending)
	m.mu.Unlock()

	m.recordPending(n)
	m.saveSnapshot(ctx, &snapshot)
}

// MapTradeID attaches the venue identifier to a registered trade. An
// unknown requestId is logged and dropped; the matching result, if it
// ever arrives, will not correlate.
func (m *Manager) MapTradeID(ctx context.Context, requestID, uniqueID string) {
	m.mu.Lock()
	entry, ok := m.pending[requestID]
	if !ok || entry.Status != models.StatusAwaitingUniqueID {
		m.mu.Unlock()
		m.recordError("trade_map_unknown")
		if m.logger != nil {
			m.logger.Warn("map for unknown request id",
				applogger.String("request_id", requestID),
				applogger.String("unique_id", uniqueID),
			)
		}
		return
	}
	entry.UniqueID = uniqueID
	entry.Status = models.StatusAwaitingResult
	snapshot := *entry
	m.mu.Unlock()

	m.saveSnapshot(ctx, &snapshot)
}

// ProcessIndividualResult correlates a deal result by venue identifier.
// Results for trades not opened by this process are expected and are
// only logged. The scan and the removal happen under one lock so a
// concurrent MapTradeID cannot race the lookup.
func (m *Manager) ProcessIndividualResult(ctx context.Context, res models.DealResult) {
	m.mu.Lock()
	var found *models.PendingTrade
	for _, entry := range m.pending {
		if entry.Status == models.StatusAwaitingResult && entry.UniqueID == res.ID {
			found = entry
			break
		}
	}
	if found == nil {
		m.mu.Unlock()
		m.recordError("trade_result_unmatched")
		if m.logger != nil {
			m.logger.Warn("result for unknown trade", applogger.String("unique_id", res.ID))
		}
		return
	}
	delete(m.pending, found.RequestID)
	n := len(m.pending)
	m.mu.Unlock()

	outcome := models.TradeOutcome{
		RequestID: found.RequestID,
		UniqueID:  found.UniqueID,
		IsWin:     res.Profit > 0,
		Result:    res,
		Signal:    found.Signal,
		ClosedAt:  m.nowFn(),
	}

	m.recordPending(n)
	if m.metrics != nil {
		m.metrics.RecordOutcome(outcome.IsWin)
	}
	if m.snapshots != nil {
		if err := m.snapshots.Delete(ctx, found.RequestID); err != nil && m.logger != nil {
			m.logger.Warn("snapshot delete failed", applogger.Error(err))
		}
	}
	if m.emit != nil {
		m.emit(outcome)
	}
}

// Pending returns a copy of the in-flight entries, oldest first.
func (m *Manager) Pending() []models.PendingTrade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PendingTrade, 0, len(m.pending))
	for _, entry := range m.pending {
		out = append(out, *entry)
	}
	return out
}

// Restore loads pending entries from the snapshot store after a restart.
func (m *Manager) Restore(ctx context.Context) error {
	if m.snapshots == nil {
		return nil
	}
	entries, err := m.snapshots.Load(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	for _, e := range entries {
		m.pending[e.RequestID] = e
	}
	n := len(m.pending)
	m.mu.Unlock()

	m.recordPending(n)
	if m.logger != nil && len(entries) > 0 {
		m.logger.Info("pending trades restored", applogger.Int("count", len(entries)))
	}
	return nil
}

func (m *Manager) saveSnapshot(ctx context.Context, t *models.PendingTrade) {
	if m.snapshots == nil {
		return
	}
	if err := m.snapshots.Save(ctx, t); err != nil && m.logger != nil {
		m.logger.Warn("snapshot save failed",
			applogger.String("request_id", t.RequestID),
			applogger.Error(err),
		)
	}
}

func (m *Manager) recordError(kind string) {
	if m.metrics != nil {
		m.metrics.RecordError(kind)
	}
}

func (m *Manager) recordPending(n int) {
	if m.metrics != nil {
		m.metrics.RecordPendingTrades(n)
	}
}

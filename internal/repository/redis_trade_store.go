package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"PipFlow/internal/domain/models"
	domrepo "PipFlow/internal/domain/repository"
	applogger "PipFlow/pkg/logger"
	pkgredis "PipFlow/pkg/redis"
)

const pendingTradesKey = "pending_trades"

// RedisTradeStore implements TradeSnapshotStore on a Redis hash keyed by
// request id. Snapshots are best-effort mirrors of the in-memory table.
type RedisTradeStore struct {
	client *pkgredis.Client
	l      *applogger.Logger
}

// NewRedisTradeStore creates a snapshot store over an established client.
func NewRedisTradeStore(client *pkgredis.Client) *RedisTradeStore {
	return &RedisTradeStore{client: client}
}

// SetLogger injects a structured logger.
func (s *RedisTradeStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *RedisTradeStore) Save(ctx context.Context, t *models.PendingTrade) error {
	if err := s.client.HSet(ctx, pendingTradesKey, t.RequestID, t); err != nil {
		return fmt.Errorf("save pending trade: %w", err)
	}
	return nil
}

func (s *RedisTradeStore) Delete(ctx context.Context, requestID string) error {
	if err := s.client.HDel(ctx, pendingTradesKey, requestID); err != nil {
		return fmt.Errorf("delete pending trade: %w", err)
	}
	return nil
}

func (s *RedisTradeStore) Load(ctx context.Context) ([]*models.PendingTrade, error) {
	fields, err := s.client.HGetAll(ctx, pendingTradesKey)
	if err != nil {
		return nil, fmt.Errorf("load pending trades: %w", err)
	}
	out := make([]*models.PendingTrade, 0, len(fields))
	for requestID, raw := range fields {
		var t models.PendingTrade
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			// a corrupt snapshot should not block the rest
			if s.l != nil {
				s.l.Warn("pending trade snapshot corrupt",
					applogger.String("request_id", requestID),
					applogger.Error(err),
				)
			}
			continue
		}
		out = append(out, &t)
	}
	return out, nil
}

var _ domrepo.TradeSnapshotStore = (*RedisTradeStore)(nil)

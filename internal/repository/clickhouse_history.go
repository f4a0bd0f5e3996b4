package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PipFlow/internal/domain/models"
	domrepo "PipFlow/internal/domain/repository"
	pkgch "PipFlow/pkg/clickhouse"
	applogger "PipFlow/pkg/logger"
)

const (
	candlesTable  = "pipflow.candles"
	outcomesTable = "pipflow.trade_outcomes"
)

// SchemaStatements are the idempotent DDL for the history tables.
var SchemaStatements = []string{
	`CREATE DATABASE IF NOT EXISTS pipflow`,
	`CREATE TABLE IF NOT EXISTS ` + candlesTable + ` (
        asset      LowCardinality(String),
        timeframe  UInt32,
        bucket     DateTime,
        open       Float64,
        high       Float64,
        low        Float64,
        close      Float64,
        volume     UInt32
    ) ENGINE = ReplacingMergeTree
    PARTITION BY toYYYYMM(bucket)
    ORDER BY (asset, timeframe, bucket)`,
	`CREATE TABLE IF NOT EXISTS ` + outcomesTable + ` (
        request_id String,
        unique_id  String,
        asset      LowCardinality(String),
        timeframe  UInt32,
        decision   LowCardinality(String),
        confidence Float64,
        is_win     UInt8,
        profit     Float64,
        closed_at  DateTime
    ) ENGINE = MergeTree
    PARTITION BY toYYYYMM(closed_at)
    ORDER BY (asset, closed_at)`,
}

// CHHistoryStore implements HistoryStore backed by ClickHouse.
type CHHistoryStore struct {
	db *sql.DB
	l  *applogger.Logger
}

// NewCHHistoryStore creates a history store over an established client.
func NewCHHistoryStore(ch *pkgch.Client) *CHHistoryStore {
	return &CHHistoryStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHHistoryStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHHistoryStore) InsertCandle(ctx context.Context, c *models.Candle) error {
	const q = `INSERT INTO ` + candlesTable + `
        (asset, timeframe, bucket, open, high, low, close, volume)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		c.Asset,
		uint32(c.Timeframe),
		time.Unix(c.Time, 0),
		c.Open,
		c.High,
		c.Low,
		c.Close,
		c.Volume,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse insert_candle error",
				applogger.String("asset", c.Asset),
				applogger.Int("timeframe", c.Timeframe),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert candle: %w", err)
	}
	return nil
}

func (s *CHHistoryStore) InsertOutcome(ctx context.Context, o *models.TradeOutcome) error {
	const q = `INSERT INTO ` + outcomesTable + `
        (request_id, unique_id, asset, timeframe, decision, confidence, is_win, profit, closed_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	isWin := uint8(0)
	if o.IsWin {
		isWin = 1
	}
	_, err := s.db.ExecContext(ctx, q,
		o.RequestID,
		o.UniqueID,
		o.Signal.Asset,
		uint32(o.Signal.Timeframe),
		string(o.Signal.Decision),
		o.Signal.Confidence,
		isWin,
		o.Result.Profit,
		o.ClosedAt,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse insert_outcome error",
				applogger.String("request_id", o.RequestID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

func (s *CHHistoryStore) LatestCandles(ctx context.Context, asset string, timeframe, n int) ([]models.Candle, error) {
	start := time.Now()
	const q = `
        SELECT asset, timeframe, bucket, open, high, low, close, volume
        FROM ` + candlesTable + ` FINAL
        WHERE asset = ? AND timeframe = ?
        ORDER BY bucket DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, asset, uint32(timeframe), n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_candles query error",
				applogger.String("asset", asset),
				applogger.Int("timeframe", timeframe),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("latest candles: %w", err)
	}
	defer rows.Close()

	tmp, err := scanCandles(rows, n)
	if err != nil {
		return nil, err
	}
	// reverse to ASC, engines replay oldest first
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Info("clickhouse latest_candles ok",
			applogger.String("asset", asset),
			applogger.Int("timeframe", timeframe),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

func (s *CHHistoryStore) QueryCandles(ctx context.Context, asset string, timeframe int, from, to time.Time, limit int) ([]models.Candle, error) {
	const q = `
        SELECT asset, timeframe, bucket, open, high, low, close, volume
        FROM ` + candlesTable + ` FINAL
        WHERE asset = ? AND timeframe = ? AND bucket >= ? AND bucket <= ?
        ORDER BY bucket ASC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, asset, uint32(timeframe), from, to, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse query_candles error",
				applogger.String("asset", asset),
				applogger.Int("timeframe", timeframe),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows, limit)
}

func (s *CHHistoryStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func scanCandles(rows *sql.Rows, sizeHint int) ([]models.Candle, error) {
	if sizeHint <= 0 {
		sizeHint = 128
	}
	out := make([]models.Candle, 0, sizeHint)
	for rows.Next() {
		var (
			c      models.Candle
			tf     uint32
			bucket time.Time
		)
		if err := rows.Scan(&c.Asset, &tf, &bucket, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.Timeframe = int(tf)
		c.Time = bucket.Unix()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

var _ domrepo.HistoryStore = (*CHHistoryStore)(nil)

package di

import (
	"context"
	"fmt"

	"PipFlow/internal/candles"
	"PipFlow/internal/domain/models"
	domrepo "PipFlow/internal/domain/repository"
	"PipFlow/internal/funnel"
	"PipFlow/internal/handler/api"
	"PipFlow/internal/indicator"
	mid "PipFlow/internal/middleware"
	"PipFlow/internal/pipeline"
	"PipFlow/internal/repository"
	"PipFlow/internal/sequencer"
	"PipFlow/internal/service/cache"
	"PipFlow/internal/service/harvester"
	"PipFlow/internal/telemetry"
	"PipFlow/internal/timesync"
	"PipFlow/internal/trades"
	"PipFlow/internal/usecase"
	pkgch "PipFlow/pkg/clickhouse"
	"PipFlow/pkg/config"
	pkgkafka "PipFlow/pkg/kafka"
	applogger "PipFlow/pkg/logger"
	pkgmetrics "PipFlow/pkg/metrics"
	pkgredis "PipFlow/pkg/redis"
	"PipFlow/pkg/server"
)

// tickFanout mirrors each accepted tick to the telemetry hub on its way
// into the pipeline.
type tickFanout struct {
	next mid.Submitter
	hub  *telemetry.Hub
}

func (t tickFanout) Submit(ctx context.Context, tk models.Tick) error {
	t.hub.Publish("pip", tk)
	return t.next.Submit(ctx, tk)
}

// InitializeApp wires the full application graph from config. Optional
// integrations (Kafka, ClickHouse, Redis, telemetry) are constructed only
// when enabled; the rest of the graph degrades to in-process behavior.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	log, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	rec := pkgmetrics.New()
	ctx := context.Background()

	// --- storage ---

	var (
		chClient *pkgch.Client
		history  domrepo.HistoryStore
		recorder *usecase.HistoryRecorder
	)
	if cfg.ClickHouse.Enabled {
		chClient, err = pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("init clickhouse: %w", err)
		}
		if err := chClient.InitSchema(ctx, repository.SchemaStatements); err != nil {
			return nil, fmt.Errorf("init clickhouse schema: %w", err)
		}
		store := repository.NewCHHistoryStore(chClient)
		store.SetLogger(log)
		history = store
		recorder = usecase.NewHistoryRecorder(store,
			usecase.WithRecorderLogger(log),
			usecase.WithRecorderMetrics(rec),
		)
	}

	var (
		redisClient *pkgredis.Client
		snapshots   domrepo.TradeSnapshotStore
	)
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(
			pkgredis.WithHost(cfg.Redis.Host),
			pkgredis.WithPort(cfg.Redis.Port),
			pkgredis.WithPassword(cfg.Redis.Password),
			pkgredis.WithDB(cfg.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		snapshots = repository.NewRedisTradeStore(redisClient)
	}

	// --- messaging ---

	var (
		publisher   domrepo.OrderPublisher
		consumer    *pkgkafka.Consumer
		tradeEvents pkgkafka.MessageHandler
	)
	if cfg.Kafka.Enabled {
		producer, perr := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
			pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
			pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
			pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
			pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
			pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
			pkgkafka.WithHashByKey(true),
		)
		if perr != nil {
			return nil, fmt.Errorf("init kafka producer: %w", perr)
		}
		publisher = repository.NewKafkaOrderPublisher(producer, cfg.Kafka.OrdersTopic, cfg.Kafka.OutcomesTopic)

		if cfg.Kafka.TradeEventsTopic != "" {
			consumer, err = pkgkafka.NewConsumer(
				pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
				pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
				pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
				pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
				pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
				pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
				pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
			)
			if err != nil {
				return nil, fmt.Errorf("init kafka consumer: %w", err)
			}
			consumer.WithConsumerHook(pkgkafka.MetricsHook(func(topic string, seconds float64, herr error) {
				rec.RecordLatency("kafka_handle", seconds)
				if herr != nil {
					rec.RecordError("kafka_handle")
				}
			}))
		}
	} else {
		publisher = repository.NewLogOrderPublisher(log)
	}

	var hub *telemetry.Hub
	if cfg.Telemetry.Enabled {
		hub = telemetry.NewHub(
			telemetry.WithLogger(log),
			telemetry.WithClientQueueSize(cfg.Telemetry.ClientQueueSize),
		)
	}

	// --- domain graph ---

	stats := usecase.NewStatsTracker(200)
	ts := timesync.New()

	// The outcome and decision sinks are bound after construction to
	// break the manager -> funnel -> dispatcher -> manager cycle. Both
	// are assigned before anything starts producing.
	var outcomeSink func(models.TradeOutcome)
	var dispatchSink func(models.TradeDecision)

	managerOpts := []trades.Option{
		trades.WithLogger(log),
		trades.WithMetrics(rec),
	}
	if snapshots != nil {
		managerOpts = append(managerOpts, trades.WithSnapshotStore(snapshots))
	}
	manager := trades.NewManager(func(o models.TradeOutcome) {
		if outcomeSink != nil {
			outcomeSink(o)
		}
	}, managerOpts...)

	engineCfg := indicator.DefaultConfig()
	if err := engineCfg.Validate(); err != nil {
		return nil, fmt.Errorf("indicator config: %w", err)
	}

	fun := funnel.New(
		funnel.Config{
			Window:        cfg.Funnel.Window,
			BaseRiskPct:   cfg.Funnel.BaseRiskPct,
			MinInvestment: cfg.Funnel.MinInvestment,
			MaxInvestment: cfg.Funnel.MaxInvestment,
			DelayMinMs:    cfg.Funnel.DelayMinMs,
			DelayMaxMs:    cfg.Funnel.DelayMaxMs,
		},
		cfg.Funnel.Balance,
		func(d models.TradeDecision) {
			if dispatchSink != nil {
				dispatchSink(d)
			}
		},
		funnel.WithLogger(log),
		funnel.WithMetrics(rec),
		funnel.WithTimeframeWeight(func(tf int) float64 {
			if w := engineCfg.TimeframeWeightFor(tf); w > 0 {
				return w
			}
			return 1
		}),
	)

	dispatcher := usecase.NewDispatcher(publisher, manager,
		usecase.WithDispatcherLogger(log),
		usecase.WithDispatcherMetrics(rec),
		usecase.WithDispatchNotify(func(d models.TradeDecision) {
			stats.DecisionMade()
			if hub != nil {
				hub.Publish("decision", d)
			}
		}),
	)
	dispatchSink = func(d models.TradeDecision) {
		if err := dispatcher.Dispatch(ctx, d); err != nil {
			log.Error("dispatch failed", applogger.String("asset", d.Asset), applogger.Error(err))
		}
	}

	outcomeSink = func(o models.TradeOutcome) {
		fun.RecordOutcome(o)
		stats.OutcomeSeen(o.IsWin)
		if recorder != nil {
			recorder.RecordOutcome(o)
		}
		if err := publisher.PublishOutcome(ctx, &o); err != nil {
			log.Warn("outcome publish failed", applogger.Error(err))
		}
		if hub != nil {
			hub.Publish("outcome", o)
		}
	}

	engineFactory := func(asset string) candles.Engine {
		return indicator.NewEngine(asset, engineCfg, func(sig models.Signal) {
			stats.SignalSeen(sig)
			rec.RecordSignal(sig.Asset, string(sig.Decision))
			if hub != nil {
				hub.Publish("signal", sig)
			}
			fun.Submit(sig)
		}, log)
	}

	seqOpts := []sequencer.Option{
		sequencer.WithLogger(log),
		sequencer.WithMetrics(rec),
	}
	if cfg.Pipeline.MaxBuffer > 0 {
		seqOpts = append(seqOpts, sequencer.WithMaxBuffer(cfg.Pipeline.MaxBuffer))
	}
	if cfg.Pipeline.ResetGap > 0 {
		seqOpts = append(seqOpts, sequencer.WithResetGap(uint64(cfg.Pipeline.ResetGap)))
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithMetrics(rec),
		pipeline.WithSequencerOptions(seqOpts...),
		pipeline.WithCandleSink(func(c models.Candle) {
			stats.CandleClosed()
			if recorder != nil {
				recorder.RecordCandle(c)
			}
			if hub != nil {
				hub.Publish("candle", c)
			}
		}),
	}
	if hub != nil && cfg.Pipeline.LiveUpdates {
		pipeOpts = append(pipeOpts, pipeline.WithLiveSink(func(c models.Candle) {
			hub.Publish("liveCandle", c)
		}))
	}
	pipe := pipeline.New(
		pipeline.Config{
			Timeframes:  cfg.Pipeline.Timeframes,
			QueueSize:   cfg.Pipeline.QueueSize,
			LiveUpdates: cfg.Pipeline.LiveUpdates,
		},
		ts, engineFactory, pipeOpts...,
	)

	// --- ingress ---

	var ingress mid.Submitter = pipe
	if hub != nil {
		ingress = tickFanout{next: pipe, hub: hub}
	}

	var guardOpts []mid.GuardOption
	if cfg.Harvester.MaxRPS > 0 {
		guardOpts = append(guardOpts, mid.WithMaxRPS(cfg.Harvester.MaxRPS))
	}
	if cfg.Harvester.BufferSize > 0 {
		guardOpts = append(guardOpts, mid.WithBufferSize(cfg.Harvester.BufferSize))
	}
	guard := mid.NewIngressGuard(ingress, rec, guardOpts...)

	stream := harvester.New(cfg.Harvester.ListenAddr, harvester.WithLogger(log))

	ingestor := usecase.NewFrameIngestor(stream, guard, pipe, manager, fun,
		usecase.WithIngestLogger(log),
		usecase.WithIngestMetrics(rec),
		usecase.WithIngestStats(stats),
	)

	if consumer != nil {
		tradeEvents = usecase.NewTradeEventsHandler(cfg.Kafka.TradeEventsTopic, manager, rec)
	}

	var opsOpts []api.OpsOption
	if history != nil {
		var candleCache cache.BytesCache
		if redisClient != nil {
			candleCache = cache.NewRedisCache(redisClient)
		} else {
			candleCache = cache.NewTTLCache()
		}
		opsOpts = append(opsOpts, api.WithCandleCache(candleCache))
	}
	opsHandler := api.NewOpsHandler(log, stats, manager, fun, ts, history, ingestor, opsOpts...)

	return server.New(cfg, server.Deps{
		Logger:      log,
		Pipeline:    pipe,
		Ingestor:    ingestor,
		Manager:     manager,
		Recorder:    recorder,
		Consumer:    consumer,
		TradeEvents: tradeEvents,
		Publisher:   publisher,
		Hub:         hub,
		HTTPHandler: opsHandler,
		CHClient:    chClient,
		RedisClient: redisClient,
	}), nil
}

package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "PipFlow/internal/domain/repository"
	"PipFlow/internal/pipeline"
	"PipFlow/internal/telemetry"
	"PipFlow/internal/trades"
	"PipFlow/internal/usecase"
	pkgch "PipFlow/pkg/clickhouse"
	"PipFlow/pkg/config"
	xhttp "PipFlow/pkg/http"
	pkgkafka "PipFlow/pkg/kafka"
	applogger "PipFlow/pkg/logger"
	pkgredis "PipFlow/pkg/redis"
)

// Deps carries the wired components into the application shell. Optional
// integrations (Kafka, ClickHouse, Redis, telemetry) are nil when
// disabled in config.
type Deps struct {
	Logger      *applogger.Logger
	Pipeline    *pipeline.Pipeline
	Ingestor    *usecase.FrameIngestor
	Manager     *trades.Manager
	Recorder    *usecase.HistoryRecorder
	Consumer    *pkgkafka.Consumer
	TradeEvents pkgkafka.MessageHandler
	Publisher   domrepo.OrderPublisher
	Hub         *telemetry.Hub
	HTTPHandler xhttp.Handler
	CHClient    *pkgch.Client
	RedisClient *pkgredis.Client
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	d          Deps
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, d Deps) *App {
	return &App{cfg: cfg, d: d}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.d.Logger

	if a.d.Hub != nil {
		go a.d.Hub.Run(ctx)
	}
	if a.d.Recorder != nil {
		a.d.Recorder.Start(ctx)
	}

	// restore in-flight correlations before any new frames arrive
	if a.d.Manager != nil {
		if err := a.d.Manager.Restore(ctx); err != nil {
			l.Warn("pending trade restore failed", applogger.Error(err))
		}
	}

	if err := a.d.Pipeline.Start(ctx); err != nil {
		l.Error("pipeline start error", applogger.Error(err))
		return err
	}

	// warm the engines from stored history; the harvester's own priming
	// batches refine this once it connects
	if a.d.Recorder != nil && len(a.cfg.ClickHouse.PrimeAssets) > 0 {
		a.d.Recorder.PrimeFromStore(ctx, a.d.Pipeline,
			a.cfg.ClickHouse.PrimeAssets,
			a.cfg.Pipeline.Timeframes,
			a.cfg.ClickHouse.PrimeDepth,
		)
	}

	if err := a.d.Ingestor.Start(ctx); err != nil {
		l.Error("ingestor start error", applogger.Error(err))
		return err
	}
	l.Info("ingestor started", applogger.String("addr", a.cfg.Harvester.ListenAddr))

	if a.d.Consumer != nil && a.d.TradeEvents != nil {
		a.d.Consumer.RegisterHandler(a.d.TradeEvents)
		go func() {
			if err := a.d.Consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.d.TradeEvents.Topic()))
	}

	a.httpServer = xhttp.NewServer(a.d.HTTPHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if a.d.Hub != nil {
		a.httpServer.Echo().GET("/ws", a.d.Hub.Handler())
	}
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops components in flow order: sources first, then the
// pipeline, then sinks and infrastructure.
func (a *App) shutdown() error {
	l := a.d.Logger
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.d.Ingestor.Stop(); err != nil {
		l.Warn("ingestor stop error", applogger.Error(err))
	}
	if a.d.Consumer != nil {
		if err := a.d.Consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if err := a.d.Pipeline.Stop(ctx); err != nil {
		l.Warn("pipeline stop error", applogger.Error(err))
	}

	if a.d.Recorder != nil {
		if err := a.d.Recorder.Stop(ctx); err != nil {
			l.Warn("history recorder stop error", applogger.Error(err))
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.d.Hub != nil {
		a.d.Hub.Close()
	}

	if a.d.Publisher != nil {
		if err := a.d.Publisher.Close(); err != nil {
			l.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.d.CHClient != nil {
		if err := a.d.CHClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.d.RedisClient != nil {
		if err := a.d.RedisClient.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}

package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "StratRun/internal/middleware"
	"StratRun/internal/usecase"
	pkgch "StratRun/pkg/clickhouse"
	"StratRun/pkg/config"
	xhttp "StratRun/pkg/http"
	pkgkafka "StratRun/pkg/kafka"
	applogger "StratRun/pkg/logger"
	"StratRun/pkg/queue"
)

// Closer is any resource released at shutdown after the workers stop.
type Closer interface {
	Close() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	dispatcher *usecase.StrategyDispatcher
	pipeline   *mid.OrderPipeline
	router     *usecase.OrderRouter
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	queue      *queue.RedisQueue
	chClient   *pkgch.Client
	httpServer *xhttp.Server
	closers    map[string]Closer
}

// New creates a new App instance with all dependencies. consumer, kh and q may be nil.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	dispatcher *usecase.StrategyDispatcher,
	pipeline *mid.OrderPipeline,
	router *usecase.OrderRouter,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	q *queue.RedisQueue,
	chClient *pkgch.Client,
	httpHandler xhttp.Handler,
) *App {
	srv := xhttp.NewServer(httpHandler,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		xhttp.WithCORS(cfg.Server.CORS, cfg.Server.CORSOrigins...),
		xhttp.WithMetricsPath(metricsPath(cfg)),
		xhttp.WithLogger(l, time.Second),
	)
	return &App{
		cfg:        cfg,
		l:          l,
		dispatcher: dispatcher,
		pipeline:   pipeline,
		router:     router,
		consumer:   consumer,
		kh:         kh,
		queue:      q,
		chClient:   chClient,
		httpServer: srv,
		closers:    map[string]Closer{},
	}
}

func metricsPath(cfg *config.Config) string {
	if !cfg.Metrics.Enabled {
		return ""
	}
	return cfg.Metrics.Path
}

// AddCloser registers a resource to release on shutdown.
func (a *App) AddCloser(name string, c Closer) {
	if c != nil {
		a.closers[name] = c
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.pipeline.Start(ctx)
	a.l.Info("order pipeline started", applogger.String("backend", a.router.Backend()))

	// Initialize runners so state endpoints answer before the first host callback.
	for _, name := range a.dispatcher.Names() {
		r, _ := a.dispatcher.Runner(name)
		r.Initialize(ctx)
	}
	a.l.Info("strategies loaded", applogger.Strings("strategies", a.dispatcher.Names()))

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.l.Info("trigger consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			a.l.Error("redis queue start error", applogger.Error(err))
			return err
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown stops intake first, then drains orders, then releases clients.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			a.l.Warn("redis queue stop error", applogger.Error(err))
		}
	}

	a.dispatcher.Close(shutdownCtx)
	a.pipeline.Stop()
	if n := a.pipeline.Buffered(); n > 0 {
		a.l.Warn("orders left in buffer at shutdown", applogger.Int("count", n))
	}
	a.router.Close()
	a.l.RemoveCollector()

	for name, c := range a.closers {
		if err := c.Close(); err != nil {
			a.l.Warn("close error", applogger.String("resource", name), applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}

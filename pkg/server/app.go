package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ORBLab/internal/domain/repository"
	"ORBLab/pkg/cache"
	pkgch "ORBLab/pkg/clickhouse"
	"ORBLab/pkg/config"
	xhttp "ORBLab/pkg/http"
	pkgkafka "ORBLab/pkg/kafka"
	applogger "ORBLab/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	handler    xhttp.Handler
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	sink       repository.OutcomeSink
	chClient   *pkgch.Client
	cache      cache.Service
	httpServer *xhttp.Server
}

// New creates a new App. consumer and chClient may be nil when disabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	sink repository.OutcomeSink,
	chClient *pkgch.Client,
	c cache.Service,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		handler:  handler,
		consumer: consumer,
		kh:       kh,
		sink:     sink,
		chClient: chClient,
		cache:    c,
	}
}

// Run starts the HTTP server and the request consumer, then blocks until
// SIGINT or SIGTERM.
func (a *App) Run() error {
	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.handler, a.l,
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithCORS(a.cfg.Server.CORSOrigins),
	)

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.l.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("orb service running",
		applogger.String("env", a.cfg.Environment),
		applogger.String("backend", a.cfg.Backend.Type),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.shutdown(ctx)
}

// shutdown stops intake first, then closes sinks and clients.
func (a *App) shutdown(ctx context.Context) error {
	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			a.l.Warn("outcome sink close error", applogger.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.l.Warn("cache close error", applogger.Error(err))
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

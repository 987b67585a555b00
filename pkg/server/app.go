package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "ChessFlow/internal/domain/repository"
	dservice "ChessFlow/internal/domain/service"
	"ChessFlow/internal/services/calibration"
	"ChessFlow/internal/usecase"
	"ChessFlow/pkg/config"
	xhttp "ChessFlow/pkg/http"
	pkgkafka "ChessFlow/pkg/kafka"
	applogger "ChessFlow/pkg/logger"
	"ChessFlow/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	handler    xhttp.Handler
	collector  *usecase.GameCollector
	consumer   *pkgkafka.Consumer
	worker     *queue.RedisQueue
	evaluator  dservice.TacticalEvaluator
	producer   *pkgkafka.Producer
	calib      *calibration.Store
	store      domrepo.PredictionStore
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	lgr *applogger.Logger,
	handler xhttp.Handler,
	collector *usecase.GameCollector,
	consumer *pkgkafka.Consumer,
	worker *queue.RedisQueue,
	evaluator dservice.TacticalEvaluator,
	producer *pkgkafka.Producer,
	calib *calibration.Store,
	store domrepo.PredictionStore,
) *App {
	return &App{
		cfg:       cfg,
		logger:    lgr,
		handler:   handler,
		collector: collector,
		consumer:  consumer,
		worker:    worker,
		evaluator: evaluator,
		producer:  producer,
		calib:     calib,
		store:     store,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.bootstrapCalibration(ctx)

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			a.logger.Error("game stream start error", applogger.Error(err))
		} else {
			a.logger.Info("game stream collector started",
				applogger.Strings("channels", a.cfg.Stream.Channels))
		}
	}

	if a.consumer != nil {
		a.consumer.Start(ctx)
		a.logger.Info("kafka consumer started", applogger.String("topic", a.cfg.Kafka.GamesTopic))
	}

	if a.worker != nil {
		if err := a.worker.Start(); err != nil {
			a.logger.Error("job worker start error", applogger.Error(err))
		} else {
			a.logger.Info("benchmark job worker started")
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// bootstrapCalibration replays persisted attempts so accuracy windows
// survive restarts. Failures degrade to an unseeded store.
func (a *App) bootstrapCalibration(ctx context.Context) {
	if a.store == nil || a.calib == nil {
		return
	}
	var since time.Time
	if a.cfg.Calibration.BootstrapSince > 0 {
		since = time.Now().Add(-a.cfg.Calibration.BootstrapSince)
	}

	bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := usecase.BootstrapCalibration(bootCtx, a.store, a.calib, since, a.cfg.Calibration.BootstrapLimit, a.logger); err != nil {
		a.logger.Warn("calibration bootstrap failed", applogger.Error(err))
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.logger.Warn("collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.worker != nil {
		if err := a.worker.Stop(shutdownCtx); err != nil {
			a.logger.Warn("job worker stop error", applogger.Error(err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.evaluator != nil {
		if err := a.evaluator.Close(); err != nil {
			a.logger.Warn("engine close error", applogger.Error(err))
		}
	}

	// Closing the store also closes the underlying ClickHouse client.
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("store close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}

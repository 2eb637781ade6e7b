package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/septivank/activity-anomaly-worker/internal/anomaly"
	"github.com/septivank/activity-anomaly-worker/internal/config"
	"github.com/septivank/activity-anomaly-worker/internal/db"
	"github.com/septivank/activity-anomaly-worker/internal/logparse"
	"github.com/septivank/activity-anomaly-worker/internal/metrics"
	"github.com/septivank/activity-anomaly-worker/internal/mq"
	"github.com/septivank/activity-anomaly-worker/internal/repository"
	"github.com/septivank/activity-anomaly-worker/internal/service"
	"github.com/septivank/activity-anomaly-worker/internal/validator"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const messageTimeout = time.Minute

func startWorker(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	processor *service.ProcessorService,
) (*mq.Consumer, error) {
	// Create context for consumer that will be cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:       conn,
		Queue:            cfg.RabbitMQ.IngestQueue,
		DLQQueue:         cfg.RabbitMQ.DLQQueue,
		Exchange:         cfg.RabbitMQ.IngestExchange,
		RoutingKey:       cfg.RabbitMQ.IngestRoutingKey,
		PrefetchCount:    cfg.RabbitMQ.PrefetchCount,
		HandleTimeout:    messageTimeout,
		Logger:           logger,
		MessageProcessor: processor.ProcessMessage,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting worker consumer",
				zap.String("queue", cfg.RabbitMQ.IngestQueue),
				zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount))
			return consumer.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-consumer.Done():
			case <-stopCtx.Done():
				logger.Warn("consumer did not drain before shutdown deadline")
			}
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close consumer", zap.Error(err))
				return err
			}
			logger.Info("worker stopped gracefully")
			return nil
		},
	})

	return consumer, nil
}

// startMetricsServer serves /metrics and /healthz on the service port
func startMetricsServer(lc fx.Lifecycle, cfg *config.Config, m *metrics.Metrics, conn *mq.Connection, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if conn.IsClosed() {
			http.Error(w, "rabbitmq connection closed", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServicePort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server failed", zap.Error(err))
				}
			}()
			logger.Info("metrics server listening", zap.String("addr", srv.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// ProvideMetrics creates the worker's metrics registry
func ProvideMetrics() *metrics.Metrics {
	return metrics.New()
}

// ProvideRepository creates a new repository instance
func ProvideRepository(pool *pgxpool.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideDetector creates the anomaly detector from the detection config
func ProvideDetector(cfg *config.Config, logger *zap.Logger) (*anomaly.Detector, error) {
	detector, err := anomaly.NewDetector(cfg.Detection)
	if err != nil {
		return nil, err
	}
	logger.Info("anomaly detector configured",
		zap.Float64("spike_window_seconds", cfg.Detection.SpikeWindowSeconds),
		zap.Int("spike_threshold", cfg.Detection.SpikeThreshold),
		zap.Float64("gap_minutes", cfg.Detection.GapMinutes),
		zap.Int("business_start_hour", cfg.Detection.BusinessStartHour),
		zap.Int("business_end_hour", cfg.Detection.BusinessEndHour),
		zap.Strings("critical_events", cfg.Detection.CriticalEvents),
	)
	return detector, nil
}

// ProvideValidator creates a new validator instance
func ProvideValidator(cfg *config.Config) *validator.Validator {
	return validator.NewValidator(cfg.Validation.TimestampToleranceMinutes)
}

// ProvideParser creates the log line parser
func ProvideParser(v *validator.Validator) *logparse.Parser {
	return logparse.NewParser(v)
}

// ProvidePublisher creates a new publisher instance
func ProvidePublisher(lc fx.Lifecycle, conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	publisher, err := mq.NewPublisher(conn, cfg.RabbitMQ.WorkerExchange, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(publisher.Close))
	return publisher, nil
}

// ProvideProcessorService creates a new processor service instance
func ProvideProcessorService(
	repo *repository.Repository,
	publisher *mq.Publisher,
	detector *anomaly.Detector,
	parser *logparse.Parser,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *service.ProcessorService {
	return service.NewProcessorService(repo, publisher, detector, parser, m, cfg, logger)
}

// ProvideDBPool creates a new database pool instance
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL, int32(cfg.Database.MaxConns))
}

// ProvideMQConnection creates a new RabbitMQ connection instance
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL, cfg.ServiceName)
}

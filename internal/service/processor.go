package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/septivank/activity-anomaly-worker/internal/anomaly"
	"github.com/septivank/activity-anomaly-worker/internal/config"
	"github.com/septivank/activity-anomaly-worker/internal/db"
	"github.com/septivank/activity-anomaly-worker/internal/logging"
	"github.com/septivank/activity-anomaly-worker/internal/logparse"
	"github.com/septivank/activity-anomaly-worker/internal/metrics"
	"github.com/septivank/activity-anomaly-worker/internal/mq"
	"github.com/septivank/activity-anomaly-worker/internal/record"
	"github.com/septivank/activity-anomaly-worker/internal/report"
	"github.com/septivank/activity-anomaly-worker/internal/repository"
)

// ErrMalformedBatch is returned for bodies that can never be processed
var ErrMalformedBatch = errors.New("malformed log batch")

// defaultSource names batches whose producer did not set one
const defaultSource = "ingest"

// EventPublisher is the subset of mq.Publisher the processor needs
type EventPublisher interface {
	PublishAnomaly(ctx context.Context, event mq.AnomalyEvent, routingKey string) error
	PublishRunSummary(ctx context.Context, event mq.RunSummaryEvent, routingKey string) error
}

// ProcessorService handles message processing logic
type ProcessorService struct {
	store     repository.AnomalyStore
	publisher EventPublisher
	detector  *anomaly.Detector
	parser    *logparse.Parser
	metrics   *metrics.Metrics
	cfg       *config.Config
	logger    *zap.Logger
}

// NewProcessorService creates a new processor service
func NewProcessorService(
	store repository.AnomalyStore,
	publisher EventPublisher,
	detector *anomaly.Detector,
	parser *logparse.Parser,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *ProcessorService {
	return &ProcessorService{
		store:     store,
		publisher: publisher,
		detector:  detector,
		parser:    parser,
		metrics:   m,
		cfg:       cfg,
		logger:    logger,
	}
}

// ProcessMessage processes one log batch: parse, detect, persist, then
// publish the anomalies and a run summary
func (s *ProcessorService) ProcessMessage(ctx context.Context, body []byte) error {
	var msg mq.LogBatchMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		s.metrics.BatchesFailed.Inc()
		return fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}

	if msg.RequestID == "" {
		msg.RequestID = uuid.NewString()
	}
	if msg.Source == "" {
		msg.Source = defaultSource
	}

	reqLogger := logging.WithRequestID(s.logger, msg.RequestID)
	reqLogger.Info("processing log batch",
		zap.String("source", msg.Source),
		zap.Int("line_count", len(msg.Lines)),
		zap.Int("content_bytes", len(msg.Content)),
	)

	records, warnings, err := s.parseBatch(msg)
	if err != nil {
		s.metrics.BatchesFailed.Inc()
		reqLogger.Error("failed to parse log batch", zap.Error(err))
		return err
	}
	for _, w := range warnings {
		reqLogger.Debug("skipped log line",
			zap.Int("line", w.Line),
			zap.String("reason", w.Reason),
		)
	}

	started := time.Now()
	anomalies, err := s.detector.Run(ctx, records)
	if err != nil {
		s.metrics.BatchesFailed.Inc()
		reqLogger.Error("failed to run detectors", zap.Error(err))
		return fmt.Errorf("failed to run detectors: %w", err)
	}
	s.metrics.ObserveRun(len(records), len(warnings), anomalies, time.Since(started))

	run := db.DetectionRun{
		ID:           uuid.New(),
		RequestID:    msg.RequestID,
		Source:       msg.Source,
		RecordCount:  len(records),
		WarningCount: len(warnings),
		AnomalyCount: len(anomalies),
		CreatedAt:    time.Now(),
	}
	runLogger := logging.WithRunID(reqLogger, run.ID.String())

	if err := s.store.SaveRun(ctx, run, anomalies); err != nil {
		s.metrics.BatchesFailed.Inc()
		runLogger.Error("failed to save detection run", zap.Error(err))
		return fmt.Errorf("failed to save detection run: %w", err)
	}

	// Publish events after successful commit
	s.publishEvents(ctx, run, anomalies, runLogger)

	runLogger.Info("log batch processed successfully",
		zap.Int("records", run.RecordCount),
		zap.Int("warnings", run.WarningCount),
		zap.Int("anomalies", run.AnomalyCount),
	)
	return nil
}

func (s *ProcessorService) parseBatch(msg mq.LogBatchMessage) ([]record.Record, []logparse.Warning, error) {
	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	if len(msg.Lines) == 0 && msg.Content != "" {
		records, warnings, err := s.parser.Parse(strings.NewReader(msg.Content), receivedAt)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
		}
		return records, warnings, nil
	}

	records, warnings := s.parser.ParseLines(msg.Lines, receivedAt)
	return records, warnings, nil
}

// publishEvents logs publish failures but does not fail the batch, since the
// run is already committed
func (s *ProcessorService) publishEvents(ctx context.Context, run db.DetectionRun, anomalies []anomaly.Anomaly, logger *zap.Logger) {
	for _, a := range anomalies {
		event := mq.AnomalyEvent{
			RunID:      run.ID.String(),
			RequestID:  run.RequestID,
			Source:     run.Source,
			Kind:       a.Kind().String(),
			Type:       a.Kind().Label(),
			Event:      a.Event(),
			AnchorTime: report.AnchorString(a),
			Details:    a.Details(),
			Payload:    report.Payload(a),
		}
		if err := s.publisher.PublishAnomaly(ctx, event, s.cfg.RabbitMQ.WorkerRoutingKey); err != nil {
			logger.Error("failed to publish anomaly event",
				zap.Error(err),
				zap.String("kind", event.Kind),
			)
		}
	}

	summary := mq.RunSummaryEvent{
		RunID:        run.ID.String(),
		RequestID:    run.RequestID,
		Source:       run.Source,
		RecordCount:  run.RecordCount,
		WarningCount: run.WarningCount,
		AnomalyCount: run.AnomalyCount,
		ByKind:       countsByName(anomalies),
		CompletedAt:  time.Now().UTC(),
	}
	if err := s.publisher.PublishRunSummary(ctx, summary, s.cfg.RabbitMQ.SummaryRoutingKey); err != nil {
		logger.Error("failed to publish run summary", zap.Error(err))
	}
}

func countsByName(anomalies []anomaly.Anomaly) map[string]int {
	counts := anomaly.CountByKind(anomalies)
	out := make(map[string]int, len(anomaly.Kinds()))
	for _, k := range anomaly.Kinds() {
		out[k.String()] = counts[k]
	}
	return out
}

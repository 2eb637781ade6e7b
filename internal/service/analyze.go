package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/septivank/activity-anomaly-worker/internal/anomaly"
	"github.com/septivank/activity-anomaly-worker/internal/chart"
	"github.com/septivank/activity-anomaly-worker/internal/db"
	"github.com/septivank/activity-anomaly-worker/internal/logparse"
	"github.com/septivank/activity-anomaly-worker/internal/report"
	"github.com/septivank/activity-anomaly-worker/internal/repository"
)

// Output file names written by AnalyzeFile
const (
	JSONReportName     = "anomalies.json"
	MarkdownReportName = "anomalies.md"
	SpikePlotName      = "spike_plot.png"
	DatabaseName       = "anomalies.db"
)

// AnalysisResult describes one AnalyzeFile run. PlotPath is empty when there
// was nothing to plot.
type AnalysisResult struct {
	RunID        uuid.UUID
	Records      int
	Warnings     []logparse.Warning
	Anomalies    []anomaly.Anomaly
	JSONPath     string
	MarkdownPath string
	PlotPath     string
	DatabasePath string
}

// Analyzer runs the whole pipeline over a single log file
type Analyzer struct {
	parser   *logparse.Parser
	detector *anomaly.Detector
	logger   *zap.Logger
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(parser *logparse.Parser, detector *anomaly.Detector, logger *zap.Logger) *Analyzer {
	return &Analyzer{parser: parser, detector: detector, logger: logger}
}

// AnalyzeFile parses logPath, detects anomalies and writes the JSON and
// Markdown reports, the spike plot and a SQLite copy into outDir
func (a *Analyzer) AnalyzeFile(ctx context.Context, logPath, outDir string) (*AnalysisResult, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	records, warnings, err := a.parser.ParseFile(logPath)
	if err != nil {
		return nil, err
	}
	if len(warnings) > 0 {
		a.logger.Warn("skipped malformed log lines", zap.Int("count", len(warnings)))
		for _, w := range warnings {
			a.logger.Debug("skipped log line",
				zap.Int("line", w.Line),
				zap.String("content", w.Content),
				zap.String("reason", w.Reason),
			)
		}
	}

	anomalies, err := a.detector.Run(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("failed to run detectors: %w", err)
	}

	result := &AnalysisResult{
		RunID:        uuid.New(),
		Records:      len(records),
		Warnings:     warnings,
		Anomalies:    anomalies,
		JSONPath:     filepath.Join(outDir, JSONReportName),
		MarkdownPath: filepath.Join(outDir, MarkdownReportName),
		DatabasePath: filepath.Join(outDir, DatabaseName),
	}

	if err := report.WriteJSONFile(result.JSONPath, anomalies); err != nil {
		return nil, err
	}
	if err := report.WriteMarkdownFile(result.MarkdownPath, anomalies); err != nil {
		return nil, err
	}
	a.logger.Info("wrote reports",
		zap.String("json", result.JSONPath),
		zap.String("markdown", result.MarkdownPath),
	)

	plotPath := filepath.Join(outDir, SpikePlotName)
	plotted, err := chart.PlotSpikes(records, anomaly.Spikes(anomalies), plotPath)
	if err != nil {
		return nil, err
	}
	if plotted {
		result.PlotPath = plotPath
		a.logger.Info("spike plot saved", zap.String("path", plotPath))
	}

	if err := a.save(ctx, result, logPath); err != nil {
		return nil, err
	}
	a.logger.Info("anomalies saved to database", zap.String("path", result.DatabasePath))

	return result, nil
}

func (a *Analyzer) save(ctx context.Context, result *AnalysisResult, logPath string) error {
	store, err := repository.NewSQLiteStore(result.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	run := db.DetectionRun{
		ID:           result.RunID,
		RequestID:    result.RunID.String(),
		Source:       logPath,
		RecordCount:  result.Records,
		WarningCount: len(result.Warnings),
		AnomalyCount: len(result.Anomalies),
		CreatedAt:    time.Now(),
	}
	return store.SaveRun(ctx, run, result.Anomalies)
}

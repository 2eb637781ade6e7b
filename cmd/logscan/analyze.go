package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/septivank/activity-anomaly-worker/internal/anomaly"
	"github.com/septivank/activity-anomaly-worker/internal/logparse"
	"github.com/septivank/activity-anomaly-worker/internal/service"
	"github.com/septivank/activity-anomaly-worker/internal/validator"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		logPath    string
		outDir     string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Write anomaly reports, a spike plot and a SQLite copy for one log file",
		Example: `  logscan analyze --log logs/sample.log --outdir output
  logscan analyze --log auth.log --config detection.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := detectionConfig(configPath)
			if err != nil {
				return err
			}
			detector, err := anomaly.NewDetector(cfg)
			if err != nil {
				return err
			}

			analyzer := service.NewAnalyzer(logparse.NewParser(validator.NewValidator(0)), detector, a.logger)
			result, err := analyzer.AnalyzeFile(cmd.Context(), logPath, outDir)
			if err != nil {
				return err
			}

			counts := anomaly.CountByKind(result.Anomalies)
			a.logger.Info("analysis complete",
				zap.Int("records", result.Records),
				zap.Int("warnings", len(result.Warnings)),
				zap.Int("anomalies", len(result.Anomalies)),
			)

			out := cmd.OutOrStdout()
			for _, k := range anomaly.Kinds() {
				fmt.Fprintf(out, "%-22s %d\n", k.Label(), counts[k])
			}
			fmt.Fprintf(out, "reports:  %s, %s\n", result.JSONPath, result.MarkdownPath)
			if result.PlotPath != "" {
				fmt.Fprintf(out, "plot:     %s\n", result.PlotPath)
			}
			fmt.Fprintf(out, "database: %s\n", result.DatabasePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&logPath, "log", "logs/sample.log", "path to the log file")
	cmd.Flags().StringVar(&outDir, "outdir", "output", "directory for reports, plot and database")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML file with detection options")
	return cmd
}

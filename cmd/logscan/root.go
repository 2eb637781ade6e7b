package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/septivank/activity-anomaly-worker/internal/anomaly"
	"github.com/septivank/activity-anomaly-worker/internal/config"
	"github.com/septivank/activity-anomaly-worker/internal/logging"
)

type app struct {
	verbose bool
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "logscan",
		Short:         "Detect anomalies in activity logs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewCLILogger(a.verbose)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log skipped lines and debug output")

	root.AddCommand(
		newAnalyzeCmd(a),
		newGenerateCmd(a),
		newPublishCmd(a),
	)
	return root
}

// detectionConfig returns the options from path when given, otherwise the
// environment-driven defaults the worker would use
func detectionConfig(path string) (anomaly.Config, error) {
	if path == "" {
		base, err := config.LoadBase()
		if err != nil {
			return anomaly.Config{}, err
		}
		return base.Detection, nil
	}

	values, err := config.LoadDetectionFile(path)
	if err != nil {
		return anomaly.Config{}, err
	}
	return anomaly.ConfigFromMap(values)
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/septivank/activity-anomaly-worker/internal/synth"
)

func newGenerateCmd(a *app) *cobra.Command {
	opts := synth.DefaultOptions()
	var out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic activity log with injected anomalies",
		Example: `  logscan generate --out logs/sample.log
  logscan generate --lines 5000 --bursts 10 --seed 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g := synth.NewGenerator(opts)

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
					return fmt.Errorf("failed to create %s: %w", filepath.Dir(out), err)
				}
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			n, err := g.WriteTo(w)
			if err != nil {
				return fmt.Errorf("failed to write log: %w", err)
			}
			a.logger.Info("generated log",
				zap.String("out", out),
				zap.Uint64("seed", g.Seed()),
				zap.Int64("bytes", n),
			)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&out, "out", "", "output file (stdout when empty or -)")
	f.IntVar(&opts.Lines, "lines", opts.Lines, "number of baseline records")
	f.IntVar(&opts.Users, "users", opts.Users, "number of distinct users")
	f.Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed, 0 for a random one")
	f.IntVar(&opts.Bursts, "bursts", opts.Bursts, "injected delete bursts")
	f.IntVar(&opts.Silences, "silences", opts.Silences, "injected silences")
	f.IntVar(&opts.OrphanLogouts, "orphan-logouts", opts.OrphanLogouts, "injected logouts without a session")
	f.IntVar(&opts.NightEvents, "night-events", opts.NightEvents, "injected critical events after hours")
	return cmd
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestGenerateThenAnalyze(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "sample.log")
	outDir := filepath.Join(dir, "output")

	run(t, "generate", "--out", logPath, "--seed", "5", "--bursts", "2")
	require.FileExists(t, logPath)

	out := run(t, "analyze", "--log", logPath, "--outdir", outDir)
	assert.Contains(t, out, "Spike Anomaly          2")
	assert.Contains(t, out, "Event Order Violation  1")

	for _, name := range []string{"anomalies.json", "anomalies.md", "spike_plot.png", "anomalies.db"} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestAnalyze_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "sample.log")
	run(t, "generate", "--out", logPath, "--seed", "5")

	cfgPath := filepath.Join(dir, "detection.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("detection:\n  spike_threshold: 100\n  critical_events: [LOGOUT]\n"), 0o644))

	out := run(t, "analyze", "--log", logPath, "--outdir", filepath.Join(dir, "out"), "--config", cfgPath)
	assert.Contains(t, out, "Spike Anomaly          0")
}

func TestAnalyze_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "detection.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("business_end_hour: 30\n"), 0o644))

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"analyze", "--log", filepath.Join(dir, "missing.log"), "--config", cfgPath})
	assert.ErrorContains(t, cmd.Execute(), "business_end_hour")
}

func TestGenerate_Stdout(t *testing.T) {
	out := run(t, "generate", "--lines", "3", "--silences", "0", "--bursts", "0", "--orphan-logouts", "0", "--night-events", "0")
	assert.Equal(t, 3, bytes.Count([]byte(out), []byte("\n")))
}

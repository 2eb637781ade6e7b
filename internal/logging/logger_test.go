package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(Options{ServiceName: "test", Level: "chatty"})
	assert.Error(t, err)
}

func TestNewLogger_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")

	logger, err := NewLogger(Options{ServiceName: "test", Level: "debug", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	WithRunID(WithRequestID(logger, "req-7"), "run-9").Info("detection finished")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"request_id":"req-7"`)
	assert.Contains(t, string(data), `"run_id":"run-9"`)
	assert.Contains(t, string(data), `"service":"test"`)
}

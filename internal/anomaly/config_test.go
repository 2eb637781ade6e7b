package anomaly

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/septivank/activity-anomaly-worker/internal/record"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2*time.Second, cfg.SpikeWindow())
	assert.Equal(t, 3, cfg.SpikeThreshold)
	assert.Equal(t, 30.0, cfg.GapMinutes)
	assert.Equal(t, 9, cfg.BusinessStartHour)
	assert.Equal(t, 18, cfg.BusinessEndHour)
	assert.Len(t, cfg.CriticalSet(), 4)
}

func TestConfigFromMap(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		check   func(t *testing.T, cfg Config)
		wantErr bool
	}{
		{
			name:   "nil map uses defaults",
			values: nil,
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, DefaultConfig(), cfg)
			},
		},
		{
			name: "unknown keys ignored",
			values: map[string]any{
				"colour":      "blue",
				"gap_minutes": 45,
			},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, 45.0, cfg.GapMinutes)
				assert.Equal(t, 3, cfg.SpikeThreshold)
			},
		},
		{
			name: "mixed numeric types",
			values: map[string]any{
				"spike_window_seconds": 0.5,
				"spike_threshold":      float64(5),
				"business_start_hour":  int64(8),
				"business_end_hour":    "20",
			},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, 500*time.Millisecond, cfg.SpikeWindow())
				assert.Equal(t, 5, cfg.SpikeThreshold)
				assert.Equal(t, 8, cfg.BusinessStartHour)
				assert.Equal(t, 20, cfg.BusinessEndHour)
			},
		},
		{
			name: "critical events from yaml style list",
			values: map[string]any{
				"critical_events": []any{"file_delete", "LOGOUT"},
			},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, map[string]struct{}{"FILE_DELETE": {}, "LOGOUT": {}}, cfg.CriticalSet())
			},
		},
		{
			name: "critical events from comma separated string",
			values: map[string]any{
				"critical_events": "FILE_DELETE, LOGOUT,",
			},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, []string{"FILE_DELETE", "LOGOUT"}, cfg.CriticalEvents)
			},
		},
		{name: "negative threshold", values: map[string]any{"spike_threshold": -2}, wantErr: true},
		{name: "negative gap", values: map[string]any{"gap_minutes": -0.5}, wantErr: true},
		{name: "hour above 23", values: map[string]any{"business_end_hour": 24}, wantErr: true},
		{name: "fractional threshold", values: map[string]any{"spike_threshold": 2.5}, wantErr: true},
		{name: "wrong type", values: map[string]any{"gap_minutes": true}, wantErr: true},
		{name: "infinite window", values: map[string]any{"spike_window_seconds": "inf"}, wantErr: true},
		{name: "window overflowing a duration", values: map[string]any{"spike_window_seconds": 1e10}, wantErr: true},
		{name: "nan window", values: map[string]any{"spike_window_seconds": math.NaN()}, wantErr: true},
		{name: "infinite gap", values: map[string]any{"gap_minutes": math.Inf(1)}, wantErr: true},
		{name: "infinite threshold", values: map[string]any{"spike_threshold": "inf"}, wantErr: true},
		{name: "empty critical event", values: map[string]any{"critical_events": []any{"FILE_DELETE", ""}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ConfigFromMap(tt.values)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestConfigFromMap_LargestWindowStillDetects(t *testing.T) {
	cfg, err := ConfigFromMap(map[string]any{"spike_window_seconds": 9223372036})
	require.NoError(t, err)
	assert.Positive(t, cfg.SpikeWindow())

	records := []record.Record{
		rec(at(9, 0, 1), "FILE_DELETE", ""),
		rec(at(9, 0, 1), "FILE_DELETE", ""),
		rec(at(9, 0, 1), "FILE_DELETE", ""),
	}
	assert.Len(t, DetectSpikes(records, cfg.SpikeWindow(), cfg.SpikeThreshold), 1)
}

func TestValidate_NamesTheKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BusinessStartHour = 30

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "business_start_hour")
}

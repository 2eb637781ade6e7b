package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/septivank/activity-anomaly-worker/internal/anomaly"
	"github.com/septivank/activity-anomaly-worker/internal/record"
)

func detected(t *testing.T) []anomaly.Anomaly {
	t.Helper()
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	records := []record.Record{
		{Timestamp: day.Add(9 * time.Hour), Activity: "LOGIN_SUCCESS", Message: "User A"},
		{Timestamp: day.Add(9*time.Hour + time.Second), Activity: "FILE_DELETE", Message: "User A"},
		{Timestamp: day.Add(9*time.Hour + time.Second), Activity: "FILE_DELETE", Message: "User A"},
		{Timestamp: day.Add(9*time.Hour + time.Second), Activity: "FILE_DELETE", Message: "User A"},
		{Timestamp: day.Add(23 * time.Hour), Activity: "LOGOUT", Message: "User B"},
		{Timestamp: day.Add(23*time.Hour + time.Minute), Activity: "FILE_UPLOAD", Message: "User B"},
	}
	anomalies, err := anomaly.DetectAll(records, anomaly.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, anomalies, 4)
	return anomalies
}

func TestPayload(t *testing.T) {
	anomalies := detected(t)

	spike := Payload(anomalies[0])
	assert.Equal(t, "Spike Anomaly", spike["type"])
	assert.Equal(t, "FILE_DELETE", spike["event"])
	assert.Equal(t, 3, spike["count"])
	assert.Equal(t, "2025-03-14T09:00:01Z - 2025-03-14T09:00:01Z", spike["time_range"])

	gap := Payload(anomalies[1])
	assert.Equal(t, "Gap Anomaly", gap["type"])
	assert.NotContains(t, gap, "event")
	assert.Equal(t, "2025-03-14T23:00:00Z", gap["end"])

	violation := Payload(anomalies[2])
	assert.Equal(t, "B", violation["user"])
	assert.Equal(t, anomalies[2].Details(), violation["details"])

	ooh := Payload(anomalies[3])
	assert.Equal(t, "Out-of-Hours", ooh["type"])
	assert.Equal(t, "9:00-18:00", ooh["business_hours"])
	assert.Equal(t, "2025-03-14T23:01:00Z", AnchorString(anomalies[3]))
}

func TestPayload_KeepsSubSecondPrecision(t *testing.T) {
	base := time.Date(2025, 3, 14, 9, 0, 1, 0, time.FixedZone("CET", 3600))
	records := []record.Record{
		{Timestamp: base.Add(100 * time.Millisecond), Activity: "FILE_DELETE"},
		{Timestamp: base.Add(500 * time.Millisecond), Activity: "FILE_DELETE"},
		{Timestamp: base.Add(900 * time.Millisecond), Activity: "FILE_DELETE"},
	}
	spikes := anomaly.DetectSpikes(records, 2*time.Second, 3)
	require.Len(t, spikes, 1)

	p := Payload(spikes[0])
	assert.Equal(t, "2025-03-14T09:00:01.1+01:00", p["start"])
	assert.Equal(t, "2025-03-14T09:00:01.9+01:00", p["end"])
	assert.Equal(t, "2025-03-14T09:00:01.1+01:00 - 2025-03-14T09:00:01.9+01:00", p["time_range"])
	assert.Equal(t, "2025-03-14T09:00:01.1+01:00", AnchorString(spikes[0]))

	start, err := time.Parse(PayloadTimeLayout, p["start"].(string))
	require.NoError(t, err)
	assert.True(t, start.Equal(records[0].Timestamp))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, detected(t)))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 4)
	assert.Equal(t, "spike", decoded[0]["kind"])
	assert.Equal(t, "out_of_hours", decoded[3]["kind"])
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, detected(t)))

	out := buf.String()
	assert.Contains(t, out, "# Anomaly Report")
	assert.Contains(t, out, "## 1. Spike Anomaly")
	assert.Contains(t, out, "## 3. Event Order Violation")
	assert.Contains(t, out, "- **Explanation**: 3 occurrences of FILE_DELETE within 2 seconds")
}

func TestWriteMarkdown_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, nil))
	assert.Contains(t, buf.String(), "No anomalies detected.")
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	anomalies := detected(t)

	jsonPath := filepath.Join(dir, "anomalies.json")
	mdPath := filepath.Join(dir, "anomalies.md")
	require.NoError(t, WriteJSONFile(jsonPath, anomalies))
	require.NoError(t, WriteMarkdownFile(mdPath, anomalies))

	for _, p := range []string{jsonPath, mdPath} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

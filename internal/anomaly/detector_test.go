package anomaly

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/septivank/activity-anomaly-worker/internal/record"
)

func sampleRecords() []record.Record {
	return []record.Record{
		rec(at(9, 0, 0), "LOGIN_SUCCESS", "User A logged in"),
		rec(at(9, 0, 1), "FILE_DELETE", "User A deleted a.txt"),
		rec(at(9, 0, 1), "FILE_DELETE", "User A deleted b.txt"),
		rec(at(9, 0, 1), "FILE_DELETE", "User A deleted c.txt"),
		rec(at(23, 0, 0), "LOGOUT", "User B logged out"),
	}
}

func TestDetectAll_EndToEnd(t *testing.T) {
	anomalies, err := DetectAll(sampleRecords(), DefaultConfig())
	require.NoError(t, err)
	require.Len(t, anomalies, 3)

	spike, ok := anomalies[0].(SpikeAnomaly)
	require.True(t, ok, "first anomaly is %T", anomalies[0])
	assert.Equal(t, "FILE_DELETE", spike.Event())
	assert.Equal(t, 3, spike.Count)

	gap, ok := anomalies[1].(GapAnomaly)
	require.True(t, ok, "second anomaly is %T", anomalies[1])
	assert.Equal(t, at(9, 0, 1), gap.Start)
	assert.Equal(t, at(23, 0, 0), gap.End)
	assert.Equal(t, 13*time.Hour+59*time.Minute+59*time.Second, gap.Duration)

	violation, ok := anomalies[2].(OrderViolationAnomaly)
	require.True(t, ok, "third anomaly is %T", anomalies[2])
	assert.Equal(t, "B", violation.Actor)

	counts := CountByKind(anomalies)
	assert.Zero(t, counts[KindOutOfHours])
}

func TestDetectAll_CriticalSetDrivesOutOfHours(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CriticalEvents = append(cfg.CriticalEvents, "logout")

	anomalies, err := DetectAll(sampleRecords(), cfg)
	require.NoError(t, err)
	require.Len(t, anomalies, 4)

	counts := CountByKind(anomalies)
	assert.Equal(t, 1, counts[KindOutOfHours])

	// violation and out-of-hours share 23:00:00; detector order breaks the tie
	assert.Equal(t, KindOrderViolation, anomalies[2].Kind())
	assert.Equal(t, KindOutOfHours, anomalies[3].Kind())
}

func TestDetectAll_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SpikeThreshold = -1

	_, err := DetectAll(sampleRecords(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMerge_SortedStableAndComplete(t *testing.T) {
	records := []record.Record{
		rec(at(1, 0, 0), "FILE_DELETE", "User x"),
		rec(at(1, 0, 0), "FILE_DELETE", "User x"),
		rec(at(1, 0, 0), "FILE_DELETE", "User x"),
		rec(at(1, 0, 0), "LOGOUT", "User x"),
		rec(at(4, 0, 0), "LOGIN_FAILURE", "User y"),
		rec(at(4, 0, 0), "LOGOUT", "User y"),
		rec(at(20, 0, 0), "FILE_UPLOAD", "User z"),
	}
	cfg := DefaultConfig()

	spikes := widen(DetectSpikes(records, cfg.SpikeWindow(), cfg.SpikeThreshold))
	gaps := widen(DetectGaps(records, cfg.GapMinutes))
	violations := widen(DetectOrderViolations(records))
	offHours := widen(DetectOutOfHours(records, cfg.BusinessStartHour, cfg.BusinessEndHour, cfg.CriticalSet()))

	merged := Merge(spikes, gaps, violations, offHours)
	assert.Len(t, merged, len(spikes)+len(gaps)+len(violations)+len(offHours))

	for i := 1; i < len(merged); i++ {
		assert.False(t, merged[i].Anchor().Before(merged[i-1].Anchor()), "index %d out of order", i)
	}

	// everything at 01:00:00 keeps detector order: spike, gap, violation, then
	// one out-of-hours entry per FILE_DELETE
	var first []Kind
	for _, a := range merged {
		if a.Anchor().Equal(at(1, 0, 0)) {
			first = append(first, a.Kind())
		}
	}
	assert.Equal(t, []Kind{KindSpike, KindGap, KindOrderViolation, KindOutOfHours, KindOutOfHours, KindOutOfHours}, first)
}

type anchorless struct{ id int }

func (anchorless) Kind() Kind        { return KindGap }
func (anchorless) Event() string     { return "" }
func (anchorless) Anchor() time.Time { return time.Time{} }
func (anchorless) Details() string   { return "" }

func (anchorless) Interval() (time.Time, time.Time, bool) {
	return time.Time{}, time.Time{}, false
}

func TestMerge_MissingAnchorSortsFirst(t *testing.T) {
	late := newOrderViolation("LOGOUT", "u", at(5, 0, 0))
	merged := Merge(
		[]Anomaly{late, anchorless{id: 1}},
		[]Anomaly{anchorless{id: 2}},
	)

	require.Len(t, merged, 3)
	assert.Equal(t, anchorless{id: 1}, merged[0])
	assert.Equal(t, anchorless{id: 2}, merged[1])
	assert.Equal(t, late, merged[2])
}

func TestDetector_RunMatchesDetect(t *testing.T) {
	d, err := NewDetector(DefaultConfig())
	require.NoError(t, err)

	var records []record.Record
	ts := at(0, 0, 0)
	activities := []string{"LOGIN_SUCCESS", "FILE_DELETE", "FILE_DELETE", "FILE_UPLOAD", "LOGOUT", "LOGOUT", "LOGIN_FAILURE"}
	for i := 0; i < 300; i++ {
		ts = ts.Add(time.Duration(i%11) * 97 * time.Second)
		records = append(records, rec(ts, activities[i%len(activities)], "User u"+string(rune('a'+i%5))))
	}

	got, err := d.Run(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, d.Detect(records), got)
}

func TestDetector_RunCancelled(t *testing.T) {
	d, err := NewDetector(DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = d.Run(ctx, sampleRecords())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDetector_RejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BusinessStartHour = 24

	d, err := NewDetector(cfg)
	assert.Nil(t, d)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

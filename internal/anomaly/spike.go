package anomaly

import (
	"time"

	"github.com/septivank/activity-anomaly-worker/internal/record"
)

// DetectSpikes reports bursts of the same activity.
//
// Each activity keeps a queue of recent timestamps. After a push, entries
// more than window older than the newest one are evicted from the front.
// Once the queue holds threshold entries a spike covering the queue is
// reported and the queue is cleared, so one sustained burst is reported in
// non-overlapping chunks.
func DetectSpikes(records []record.Record, window time.Duration, threshold int) []SpikeAnomaly {
	var spikes []SpikeAnomaly
	windows := make(map[string][]time.Time)

	for _, rec := range records {
		q := append(windows[rec.Activity], rec.Timestamp)

		evict := 0
		for evict < len(q) && rec.Timestamp.Sub(q[evict]) > window {
			evict++
		}
		q = q[evict:]

		if len(q) >= threshold {
			spikes = append(spikes, newSpike(rec.Activity, q[0], q[len(q)-1], len(q), window))
			q = nil
		}
		windows[rec.Activity] = q
	}

	return spikes
}

package anomaly

import (
	"github.com/septivank/activity-anomaly-worker/internal/record"
)

// DetectGaps reports silences between consecutive records that last strictly
// longer than gapMinutes.
func DetectGaps(records []record.Record, gapMinutes float64) []GapAnomaly {
	var gaps []GapAnomaly
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1].Timestamp, records[i].Timestamp
		if cur.Sub(prev).Minutes() > gapMinutes {
			gaps = append(gaps, newGap(prev, cur))
		}
	}
	return gaps
}

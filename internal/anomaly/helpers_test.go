package anomaly

import (
	"time"

	"github.com/septivank/activity-anomaly-worker/internal/record"
)

var baseDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

// at builds a timestamp on the test day from h:m:s
func at(h, m, s int) time.Time {
	return baseDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
}

func rec(ts time.Time, activity, message string) record.Record {
	return record.Record{Timestamp: ts, Activity: activity, Message: message}
}

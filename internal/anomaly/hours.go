package anomaly

import (
	"github.com/septivank/activity-anomaly-worker/internal/record"
)

// DetectOutOfHours reports critical activities whose time of day falls
// outside [startHour:00, endHour:00). There is no wraparound: when startHour
// is not below endHour no time is in hours.
func DetectOutOfHours(records []record.Record, startHour, endHour int, critical map[string]struct{}) []OutOfHoursAnomaly {
	var out []OutOfHoursAnomaly
	for _, rec := range records {
		if _, ok := critical[rec.Activity]; !ok {
			continue
		}
		if !withinBusinessHours(rec.Timestamp.Hour(), startHour, endHour) {
			out = append(out, newOutOfHours(rec.Activity, rec.Timestamp, startHour, endHour))
		}
	}
	return out
}

// h:mm:ss >= start:00:00 iff h >= start, and h:mm:ss < end:00:00 iff h < end
func withinBusinessHours(hour, startHour, endHour int) bool {
	return hour >= startHour && hour < endHour
}

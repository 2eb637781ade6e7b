package timeparser

import (
	"fmt"
	"strings"
	"time"
)

var logTimestampFormats = []string{
	"2006-01-02 15:04:05",           // YYYY-MM-DD HH:mm:ss
	"2006-01-02 15:04:05,999999999", // YYYY-MM-DD HH:mm:ss,fff
	"2006-01-02 15:04:05.999999999", // YYYY-MM-DD HH:mm:ss.fff
	"2006-01-02T15:04:05.999999999", // ISO-8601 without zone
	time.RFC3339Nano,
}

// ParseLogTimestamp attempts to parse a log timestamp with multiple formats.
// Timestamps without a zone are read as UTC.
func ParseLogTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	var lastErr error
	for _, format := range logTimestampFormats {
		t, err := time.Parse(format, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", value, lastErr)
}

// IsWithinTolerance checks if a log timestamp is within tolerance of the time
// the batch was received
func IsWithinTolerance(logTime, receivedTime time.Time, toleranceMinutes int) bool {
	diff := logTime.Sub(receivedTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(toleranceMinutes)*time.Minute
}

package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/septivank/activity-anomaly-worker/internal/record"
	"github.com/septivank/activity-anomaly-worker/tools/timeparser"
)

// ValidationResult holds validation outcome
type ValidationResult struct {
	IsValid bool
	Reason  string
}

// LineData represents the three raw fields of a log line
type LineData struct {
	Timestamp string
	Activity  string
	Message   string
}

// Validator turns raw log fields into records
type Validator struct {
	timestampToleranceMinutes int
}

// NewValidator creates a new validator. A tolerance of 0 disables the
// received-at check.
func NewValidator(timestampToleranceMinutes int) *Validator {
	return &Validator{
		timestampToleranceMinutes: timestampToleranceMinutes,
	}
}

// SplitLine splits "TIMESTAMP, ACTIVITY, MESSAGE" on the first two commas.
// The message keeps any further commas.
func SplitLine(line string) (LineData, bool) {
	parts := strings.SplitN(strings.TrimSpace(line), ",", 3)
	if len(parts) < 3 {
		return LineData{}, false
	}
	return LineData{
		Timestamp: strings.TrimSpace(parts[0]),
		Activity:  strings.TrimSpace(parts[1]),
		Message:   strings.TrimSpace(parts[2]),
	}, true
}

// ValidateLine validates the fields of a single log line and normalizes the
// activity label. A zero receivedAt skips the tolerance check.
func (v *Validator) ValidateLine(line LineData, receivedAt time.Time) (record.Record, ValidationResult) {
	result := ValidationResult{IsValid: true}

	activity := strings.ToUpper(line.Activity)
	if activity == "" {
		result.IsValid = false
		result.Reason = "empty activity"
		return record.Record{}, result
	}

	ts, err := timeparser.ParseLogTimestamp(line.Timestamp)
	if err != nil {
		result.IsValid = false
		result.Reason = fmt.Sprintf("invalid timestamp format: %v", err)
		return record.Record{}, result
	}

	if v.timestampToleranceMinutes > 0 && !receivedAt.IsZero() &&
		!timeparser.IsWithinTolerance(ts, receivedAt, v.timestampToleranceMinutes) {
		result.IsValid = false
		result.Reason = fmt.Sprintf("timestamp outside tolerance window (±%d minutes)", v.timestampToleranceMinutes)
		return record.Record{}, result
	}

	return record.Record{
		Timestamp: ts,
		Activity:  activity,
		Message:   line.Message,
	}, result
}

package validator_test

import (
	"testing"
	"time"

	"github.com/septivank/activity-anomaly-worker/internal/validator"
)

const testTimestampToleranceMinutes = 5

func TestSplitLine(t *testing.T) {
	line, ok := validator.SplitLine("  2025-12-29 10:30:00 , file_delete , User a removed x.csv, y.csv \n")
	if !ok {
		t.Fatal("Expected line to split")
	}
	if line.Timestamp != "2025-12-29 10:30:00" {
		t.Errorf("Unexpected timestamp field %q", line.Timestamp)
	}
	if line.Activity != "file_delete" {
		t.Errorf("Unexpected activity field %q", line.Activity)
	}
	if line.Message != "User a removed x.csv, y.csv" {
		t.Errorf("Unexpected message field %q", line.Message)
	}
}

func TestSplitLine_TooFewFields(t *testing.T) {
	if _, ok := validator.SplitLine("2025-12-29 10:30:00, LOGIN_SUCCESS"); ok {
		t.Error("Expected two-field line to be rejected")
	}
}

func TestValidateLine_ValidData(t *testing.T) {
	v := validator.NewValidator(testTimestampToleranceMinutes)

	line := validator.LineData{
		Timestamp: "2025-12-29 10:30:00",
		Activity:  "login_success",
		Message:   "User alice",
	}
	receivedAt := time.Date(2025, 12, 29, 10, 32, 0, 0, time.UTC)

	rec, result := v.ValidateLine(line, receivedAt)
	if !result.IsValid {
		t.Fatalf("Expected valid result, got invalid: %s", result.Reason)
	}
	if rec.Activity != "LOGIN_SUCCESS" {
		t.Errorf("Expected upper-cased activity, got %s", rec.Activity)
	}

	expectedTime := time.Date(2025, 12, 29, 10, 30, 0, 0, time.UTC)
	if !rec.Timestamp.Equal(expectedTime) {
		t.Errorf("Expected timestamp %v, got %v", expectedTime, rec.Timestamp)
	}
}

func TestValidateLine_EmptyActivity(t *testing.T) {
	v := validator.NewValidator(0)

	_, result := v.ValidateLine(validator.LineData{Timestamp: "2025-12-29 10:30:00", Message: "x"}, time.Time{})
	if result.IsValid {
		t.Error("Expected invalid result for empty activity")
	}
	if result.Reason != "empty activity" {
		t.Errorf("Expected 'empty activity', got '%s'", result.Reason)
	}
}

func TestValidateLine_InvalidTimestamp(t *testing.T) {
	v := validator.NewValidator(0)

	_, result := v.ValidateLine(validator.LineData{Timestamp: "yesterday", Activity: "LOGOUT"}, time.Time{})
	if result.IsValid {
		t.Error("Expected invalid result for invalid timestamp")
	}
}

func TestValidateLine_OutsideTolerance(t *testing.T) {
	v := validator.NewValidator(testTimestampToleranceMinutes)

	line := validator.LineData{Timestamp: "2025-12-29 10:00:00", Activity: "LOGOUT"}
	// Received 10 minutes later (outside ±5 minute tolerance)
	receivedAt := time.Date(2025, 12, 29, 10, 10, 1, 0, time.UTC)

	_, result := v.ValidateLine(line, receivedAt)
	if result.IsValid {
		t.Error("Expected invalid result for timestamp outside tolerance")
	}
}

func TestValidateLine_ToleranceDisabled(t *testing.T) {
	v := validator.NewValidator(0)

	line := validator.LineData{Timestamp: "2020-01-01 00:00:00", Activity: "LOGOUT"}
	_, result := v.ValidateLine(line, time.Date(2025, 12, 29, 10, 0, 0, 0, time.UTC))
	if !result.IsValid {
		t.Errorf("Expected valid result with tolerance disabled, got: %s", result.Reason)
	}
}

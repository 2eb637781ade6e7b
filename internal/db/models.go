package db

import (
	"time"

	"github.com/google/uuid"
)

// DetectionRun represents one pass of the detectors over a record batch
type DetectionRun struct {
	ID           uuid.UUID
	RequestID    string
	Source       string
	RecordCount  int
	WarningCount int
	AnomalyCount int
	CreatedAt    time.Time
}

// AnomalyRow represents a stored anomaly. Payload holds the full structured
// anomaly as JSON for later replay.
type AnomalyRow struct {
	ID         uuid.UUID
	RunID      uuid.UUID
	Position   int
	Type       string
	Kind       string
	Event      *string
	AnchorTime string
	Details    string
	Payload    []byte
	CreatedAt  time.Time
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/septivank/activity-anomaly-worker/internal/anomaly"
	"github.com/septivank/activity-anomaly-worker/internal/db"
	"github.com/septivank/activity-anomaly-worker/internal/report"
)

// AnomalyStore persists a detection run and its anomalies atomically
type AnomalyStore interface {
	SaveRun(ctx context.Context, run db.DetectionRun, anomalies []anomaly.Anomaly) error
}

// NewAnomalyRows converts anomalies into rows for the given run, one row per
// anomaly in the order given
func NewAnomalyRows(runID uuid.UUID, anomalies []anomaly.Anomaly) ([]db.AnomalyRow, error) {
	rows := make([]db.AnomalyRow, 0, len(anomalies))
	for i, a := range anomalies {
		payload, err := json.Marshal(report.Payload(a))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal anomaly payload: %w", err)
		}

		var event *string
		if ev := a.Event(); ev != "" {
			event = &ev
		}

		rows = append(rows, db.AnomalyRow{
			ID:         uuid.New(),
			RunID:      runID,
			Position:   i,
			Type:       a.Kind().Label(),
			Kind:       a.Kind().String(),
			Event:      event,
			AnchorTime: report.AnchorString(a),
			Details:    a.Details(),
			Payload:    payload,
		})
	}
	return rows, nil
}

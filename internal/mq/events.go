package mq

import "time"

// LogBatchMessage is the body consumed from the ingest queue. Lines carries
// one "TIMESTAMP, ACTIVITY, MESSAGE" entry each; Content is accepted as an
// alternative for producers that ship a whole file.
type LogBatchMessage struct {
	RequestID  string    `json:"request_id"`
	Source     string    `json:"source"`
	ReceivedAt time.Time `json:"received_at"`
	Lines      []string  `json:"lines,omitempty"`
	Content    string    `json:"content,omitempty"`
}

// AnomalyEvent is published once per detected anomaly
type AnomalyEvent struct {
	RunID      string         `json:"run_id"`
	RequestID  string         `json:"request_id"`
	Source     string         `json:"source"`
	Kind       string         `json:"kind"`
	Type       string         `json:"type"`
	Event      string         `json:"event,omitempty"`
	AnchorTime string         `json:"anchor_time"`
	Details    string         `json:"details"`
	Payload    map[string]any `json:"payload"`
}

// RunSummaryEvent is published after every processed batch
type RunSummaryEvent struct {
	RunID        string         `json:"run_id"`
	RequestID    string         `json:"request_id"`
	Source       string         `json:"source"`
	RecordCount  int            `json:"record_count"`
	WarningCount int            `json:"warning_count"`
	AnomalyCount int            `json:"anomaly_count"`
	ByKind       map[string]int `json:"by_kind"`
	CompletedAt  time.Time      `json:"completed_at"`
}

// Package report renders anomaly lists for people and machines. It only
// serializes what the detectors built and never re-derives anything.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/septivank/activity-anomaly-worker/internal/anomaly"
)

// Payload returns the structured form of an anomaly, keyed the same way for
// JSON reports, queue events and stored rows
func Payload(a anomaly.Anomaly) map[string]any {
	p := map[string]any{
		"type":    a.Kind().Label(),
		"kind":    a.Kind().String(),
		"details": a.Details(),
	}
	if ev := a.Event(); ev != "" {
		p["event"] = ev
	}

	switch v := a.(type) {
	case anomaly.SpikeAnomaly:
		p["start"] = formatTime(v.Start)
		p["end"] = formatTime(v.End)
		p["time_range"] = formatTime(v.Start) + " - " + formatTime(v.End)
		p["count"] = v.Count
		p["window_seconds"] = v.Window.Seconds()
	case anomaly.GapAnomaly:
		p["start"] = formatTime(v.Start)
		p["end"] = formatTime(v.End)
		p["duration_minutes"] = v.DurationMinutes()
	case anomaly.OrderViolationAnomaly:
		p["user"] = v.Actor
		p["time"] = formatTime(v.Time)
	case anomaly.OutOfHoursAnomaly:
		p["time"] = formatTime(v.Time)
		p["business_hours"] = fmt.Sprintf("%d:00-%d:00", v.StartHour, v.EndHour)
	}
	return p
}

// AnchorString renders the anchor time of an anomaly for storage and events
func AnchorString(a anomaly.Anomaly) string {
	return formatTime(a.Anchor())
}

// PayloadTimeLayout keeps sub-second precision and the zone offset, unlike
// the details text
const PayloadTimeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(PayloadTimeLayout)
}

// WriteJSON writes the anomalies as a pretty-printed JSON array
func WriteJSON(w io.Writer, anomalies []anomaly.Anomaly) error {
	payloads := make([]map[string]any, 0, len(anomalies))
	for _, a := range anomalies {
		payloads = append(payloads, Payload(a))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payloads); err != nil {
		return fmt.Errorf("failed to encode anomalies: %w", err)
	}
	return nil
}

// WriteMarkdown writes a human-readable summary
func WriteMarkdown(w io.Writer, anomalies []anomaly.Anomaly) error {
	var b strings.Builder
	b.WriteString("# Anomaly Report\n\n")

	if len(anomalies) == 0 {
		b.WriteString("No anomalies detected.\n")
	}

	for i, a := range anomalies {
		p := Payload(a)
		fmt.Fprintf(&b, "## %d. %s\n", i+1, a.Kind().Label())

		keys := make([]string, 0, len(p))
		for k := range p {
			if k != "details" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- **%s**: %v\n", k, p[k])
		}
		fmt.Fprintf(&b, "- **Explanation**: %s\n\n", a.Details())
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}
	return nil
}

// WriteJSONFile writes the JSON report to path
func WriteJSONFile(path string, anomalies []anomaly.Anomaly) error {
	return writeFile(path, func(w io.Writer) error { return WriteJSON(w, anomalies) })
}

// WriteMarkdownFile writes the markdown report to path
func WriteMarkdownFile(path string, anomalies []anomaly.Anomaly) error {
	return writeFile(path, func(w io.Writer) error { return WriteMarkdown(w, anomalies) })
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Package chart draws the event-frequency plot with spike markers.
package chart

import (
	"fmt"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/septivank/activity-anomaly-worker/internal/anomaly"
	"github.com/septivank/activity-anomaly-worker/internal/record"
)

// Point is the number of records sharing one timestamp
type Point struct {
	Time  time.Time
	Count int
}

// Frequency counts records per distinct timestamp in ascending order.
// records must already be sorted.
func Frequency(records []record.Record) []Point {
	var points []Point
	for _, r := range records {
		if n := len(points); n > 0 && points[n-1].Time.Equal(r.Timestamp) {
			points[n-1].Count++
			continue
		}
		points = append(points, Point{Time: r.Timestamp, Count: 1})
	}
	return points
}

// SpikeMarkers returns the frequency points that fall inside any spike
// interval, bounds included
func SpikeMarkers(points []Point, spikes []anomaly.SpikeAnomaly) []Point {
	var marks []Point
	for _, p := range points {
		for _, s := range spikes {
			if !p.Time.Before(s.Start) && !p.Time.After(s.End) {
				marks = append(marks, p)
				break
			}
		}
	}
	return marks
}

// PlotSpikes writes a PNG (or any format gonum infers from the extension) of
// event frequency over time with spike markers. It reports false and writes
// nothing when there are no records.
func PlotSpikes(records []record.Record, spikes []anomaly.SpikeAnomaly, path string) (bool, error) {
	if len(records) == 0 {
		return false, nil
	}

	points := Frequency(records)

	p := plot.New()
	p.Title.Text = "Event frequency over time (spike visualization)"
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Event frequency (per timestamp)"
	p.X.Tick.Marker = plot.TimeTicks{Format: anomaly.TimeLayout}

	line, err := plotter.NewLine(toXYs(points))
	if err != nil {
		return false, fmt.Errorf("failed to build frequency line: %w", err)
	}
	p.Add(line)

	if marks := SpikeMarkers(points, spikes); len(marks) > 0 {
		scatter, err := plotter.NewScatter(toXYs(marks))
		if err != nil {
			return false, fmt.Errorf("failed to build spike markers: %w", err)
		}
		p.Add(scatter)
	}

	if err := p.Save(12*vg.Inch, 4*vg.Inch, path); err != nil {
		return false, fmt.Errorf("failed to save spike plot: %w", err)
	}
	return true, nil
}

func toXYs(points []Point) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, p := range points {
		xys[i].X = float64(p.Time.Unix()) + float64(p.Time.Nanosecond())/1e9
		xys[i].Y = float64(p.Count)
	}
	return xys
}

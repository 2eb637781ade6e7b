package anomaly

import (
	"fmt"
	"time"
)

// TimeLayout is the layout used when rendering instants into details text
const TimeLayout = "2006-01-02 15:04:05"

// Kind identifies which rule produced an anomaly
type Kind int

const (
	KindSpike Kind = iota + 1
	KindGap
	KindOrderViolation
	KindOutOfHours
)

func (k Kind) String() string {
	switch k {
	case KindSpike:
		return "spike"
	case KindGap:
		return "gap"
	case KindOrderViolation:
		return "order_violation"
	case KindOutOfHours:
		return "out_of_hours"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Label returns the human-readable report title for the kind
func (k Kind) Label() string {
	switch k {
	case KindSpike:
		return "Spike Anomaly"
	case KindGap:
		return "Gap Anomaly"
	case KindOrderViolation:
		return "Event Order Violation"
	case KindOutOfHours:
		return "Out-of-Hours"
	default:
		return k.String()
	}
}

// Kinds lists every kind in detector order
func Kinds() []Kind {
	return []Kind{KindSpike, KindGap, KindOrderViolation, KindOutOfHours}
}

// Anomaly is the common shape of every detector result.
//
// Anchor is the instant used to place the anomaly on a single timeline. It
// is the variant's own instant when it has one, otherwise the start of its
// interval. A zero Anchor sorts before everything else.
type Anomaly interface {
	Kind() Kind
	Event() string
	Anchor() time.Time
	Interval() (start, end time.Time, ok bool)
	Details() string
}

// SpikeAnomaly reports a burst of one activity inside the sliding window
type SpikeAnomaly struct {
	Activity string
	Start    time.Time
	End      time.Time
	Count    int
	Window   time.Duration
	details  string
}

func newSpike(activity string, start, end time.Time, count int, window time.Duration) SpikeAnomaly {
	return SpikeAnomaly{
		Activity: activity,
		Start:    start,
		End:      end,
		Count:    count,
		Window:   window,
		details:  fmt.Sprintf("%d occurrences of %s within %g seconds", count, activity, window.Seconds()),
	}
}

func (s SpikeAnomaly) Kind() Kind        { return KindSpike }
func (s SpikeAnomaly) Event() string     { return s.Activity }
func (s SpikeAnomaly) Anchor() time.Time { return s.Start }
func (s SpikeAnomaly) Details() string   { return s.details }

func (s SpikeAnomaly) Interval() (time.Time, time.Time, bool) {
	return s.Start, s.End, true
}

// GapAnomaly reports a silence between two consecutive records
type GapAnomaly struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration
	details  string
}

func newGap(start, end time.Time) GapAnomaly {
	d := end.Sub(start)
	return GapAnomaly{
		Start:    start,
		End:      end,
		Duration: d,
		details: fmt.Sprintf("No events for %.2f minutes between %s and %s",
			d.Minutes(), start.Format(TimeLayout), end.Format(TimeLayout)),
	}
}

func (g GapAnomaly) Kind() Kind        { return KindGap }
func (g GapAnomaly) Event() string     { return "" }
func (g GapAnomaly) Anchor() time.Time { return g.Start }
func (g GapAnomaly) Details() string   { return g.details }

func (g GapAnomaly) Interval() (time.Time, time.Time, bool) {
	return g.Start, g.End, true
}

// DurationMinutes returns the gap length in fractional minutes
func (g GapAnomaly) DurationMinutes() float64 {
	return g.Duration.Minutes()
}

// OrderViolationAnomaly reports a terminal session event without its precursor
type OrderViolationAnomaly struct {
	Activity string
	Actor    string
	Time     time.Time
	details  string
}

func newOrderViolation(activity, actor string, ts time.Time) OrderViolationAnomaly {
	return OrderViolationAnomaly{
		Activity: activity,
		Actor:    actor,
		Time:     ts,
		details: fmt.Sprintf("%s performed %s at %s without prior %s",
			actor, activity, ts.Format(TimeLayout), "LOGIN_SUCCESS"),
	}
}

func (o OrderViolationAnomaly) Kind() Kind        { return KindOrderViolation }
func (o OrderViolationAnomaly) Event() string     { return o.Activity }
func (o OrderViolationAnomaly) Anchor() time.Time { return o.Time }
func (o OrderViolationAnomaly) Details() string   { return o.details }

func (o OrderViolationAnomaly) Interval() (time.Time, time.Time, bool) {
	return time.Time{}, time.Time{}, false
}

// OutOfHoursAnomaly reports a critical activity outside business hours
type OutOfHoursAnomaly struct {
	Activity  string
	Time      time.Time
	StartHour int
	EndHour   int
	details   string
}

func newOutOfHours(activity string, ts time.Time, startHour, endHour int) OutOfHoursAnomaly {
	return OutOfHoursAnomaly{
		Activity:  activity,
		Time:      ts,
		StartHour: startHour,
		EndHour:   endHour,
		details: fmt.Sprintf("%s at %s is outside business hours (%d:00-%d:00)",
			activity, ts.Format(TimeLayout), startHour, endHour),
	}
}

func (o OutOfHoursAnomaly) Kind() Kind        { return KindOutOfHours }
func (o OutOfHoursAnomaly) Event() string     { return o.Activity }
func (o OutOfHoursAnomaly) Anchor() time.Time { return o.Time }
func (o OutOfHoursAnomaly) Details() string   { return o.details }

func (o OutOfHoursAnomaly) Interval() (time.Time, time.Time, bool) {
	return time.Time{}, time.Time{}, false
}

// Spikes filters the spike variants out of a merged list
func Spikes(anomalies []Anomaly) []SpikeAnomaly {
	var out []SpikeAnomaly
	for _, a := range anomalies {
		if s, ok := a.(SpikeAnomaly); ok {
			out = append(out, s)
		}
	}
	return out
}

// CountByKind tallies anomalies per kind
func CountByKind(anomalies []Anomaly) map[Kind]int {
	counts := make(map[Kind]int, 4)
	for _, a := range anomalies {
		counts[a.Kind()]++
	}
	return counts
}

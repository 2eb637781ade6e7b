package anomaly

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/septivank/activity-anomaly-worker/internal/record"
)

// Detector runs all anomaly rules with a fixed, validated configuration
type Detector struct {
	cfg      Config
	critical map[string]struct{}
}

// NewDetector creates a detector after validating cfg
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{
		cfg:      cfg,
		critical: cfg.CriticalSet(),
	}, nil
}

// Config returns the configuration the detector was built with
func (d *Detector) Config() Config {
	return d.cfg
}

// Detect runs the four detectors one after another and merges the results
func (d *Detector) Detect(records []record.Record) []Anomaly {
	return Merge(
		widen(DetectSpikes(records, d.cfg.SpikeWindow(), d.cfg.SpikeThreshold)),
		widen(DetectGaps(records, d.cfg.GapMinutes)),
		widen(DetectOrderViolations(records)),
		widen(DetectOutOfHours(records, d.cfg.BusinessStartHour, d.cfg.BusinessEndHour, d.critical)),
	)
}

// Run is Detect with each detector on its own goroutine. The merge happens
// only after all four have finished, so the output matches Detect.
func (d *Detector) Run(ctx context.Context, records []record.Record) ([]Anomaly, error) {
	var spikes, gaps, violations, offHours []Anomaly

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		spikes = widen(DetectSpikes(records, d.cfg.SpikeWindow(), d.cfg.SpikeThreshold))
		return ctx.Err()
	})
	g.Go(func() error {
		gaps = widen(DetectGaps(records, d.cfg.GapMinutes))
		return ctx.Err()
	})
	g.Go(func() error {
		violations = widen(DetectOrderViolations(records))
		return ctx.Err()
	})
	g.Go(func() error {
		offHours = widen(DetectOutOfHours(records, d.cfg.BusinessStartHour, d.cfg.BusinessEndHour, d.critical))
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Merge(spikes, gaps, violations, offHours), nil
}

// DetectAll validates cfg and returns every anomaly on one ascending timeline
func DetectAll(records []record.Record, cfg Config) ([]Anomaly, error) {
	d, err := NewDetector(cfg)
	if err != nil {
		return nil, err
	}
	return d.Detect(records), nil
}

// Merge concatenates the groups in order and stable-sorts by Anchor, so
// anomalies with equal anchors keep their relative input order.
func Merge(groups ...[]Anomaly) []Anomaly {
	n := 0
	for _, g := range groups {
		n += len(g)
	}

	merged := make([]Anomaly, 0, n)
	for _, g := range groups {
		merged = append(merged, g...)
	}

	slices.SortStableFunc(merged, func(a, b Anomaly) int {
		return a.Anchor().Compare(b.Anchor())
	})
	return merged
}

func widen[T Anomaly](items []T) []Anomaly {
	out := make([]Anomaly, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

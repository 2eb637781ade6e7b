// Package synth generates activity logs with a known set of anomalies, for
// demos and for exercising the detectors end to end.
package synth

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/septivank/activity-anomaly-worker/internal/anomaly"
	"github.com/septivank/activity-anomaly-worker/internal/record"
)

const (
	dayStartHour = 9
	dayEndHour   = 17
	nightHour    = 22

	silenceBase  = 45 * time.Minute
	nightSpacing = 10 * time.Minute
	burstOffset  = 3 * time.Second
)

// Options controls the generated log. Lines counts baseline records only;
// each injected anomaly adds records on top.
type Options struct {
	Start         time.Time
	Lines         int
	Users         int
	Seed          uint64
	Bursts        int
	Silences      int
	OrphanLogouts int
	NightEvents   int
}

// DefaultOptions returns a small log with one anomaly of each kind
func DefaultOptions() Options {
	return Options{
		Start:         time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Lines:         200,
		Users:         5,
		Seed:          42,
		Bursts:        1,
		Silences:      1,
		OrphanLogouts: 1,
		NightEvents:   1,
	}
}

// Generator builds the same log for the same seed on every call
type Generator struct {
	opts Options
}

// NewGenerator creates a generator. A zero seed picks one from the clock.
func NewGenerator(opts Options) *Generator {
	if opts.Users < 1 {
		opts.Users = 1
	}
	if opts.Lines < 0 {
		opts.Lines = 0
	}
	if opts.Start.IsZero() {
		opts.Start = DefaultOptions().Start
	}
	if opts.Seed == 0 {
		opts.Seed = uint64(time.Now().UnixNano())
	}
	return &Generator{opts: opts}
}

// Seed returns the seed in use, so a random run can be reproduced
func (g *Generator) Seed() uint64 {
	return g.opts.Seed
}

type builder struct {
	faker    *gofakeit.Faker
	users    []string
	loggedIn map[string]bool
	cursor   time.Time
	out      []record.Record
}

// Records generates the log. Baseline traffic stays inside one working day
// with steps short enough to never look like a gap, and every session is
// opened before it is closed, so the only anomalies are the injected ones
// (plus the silence before the night block).
func (g *Generator) Records() []record.Record {
	o := g.opts
	faker := gofakeit.New(o.Seed)
	b := &builder{
		faker:    faker,
		users:    users(faker, o.Users),
		loggedIn: make(map[string]bool),
		cursor:   time.Date(o.Start.Year(), o.Start.Month(), o.Start.Day(), dayStartHour, 0, 0, 0, o.Start.Location()),
	}

	budget := time.Duration(dayEndHour-dayStartHour)*time.Hour - time.Duration(o.Silences)*(silenceBase+15*time.Minute)
	maxStep := int(budget.Seconds()) / (o.Lines + 1)
	if maxStep < 2 {
		maxStep = 2
	}
	minStep := maxStep / 2

	// a silence after the last baseline record would run into the night block
	bursts := pickIndices(faker, o.Bursts, o.Lines)
	silences := pickIndices(faker, o.Silences, o.Lines-1)
	orphans := pickIndices(faker, o.OrphanLogouts, o.Lines)

	for i := 0; i < o.Lines; i++ {
		b.cursor = b.cursor.Add(time.Duration(b.faker.IntRange(minStep, maxStep)) * time.Second)
		b.baseline()

		if silences[i] {
			b.cursor = b.cursor.Add(silenceBase + time.Duration(b.faker.IntRange(0, 15))*time.Minute)
		}
		if bursts[i] {
			b.cursor = b.cursor.Add(burstOffset)
			b.burst()
		}
		if orphans[i] {
			b.cursor = b.cursor.Add(time.Second)
			b.orphanLogout()
		}
	}

	if o.NightEvents > 0 {
		night := time.Date(b.cursor.Year(), b.cursor.Month(), b.cursor.Day(), nightHour, 0, 0, 0, b.cursor.Location())
		if night.After(b.cursor) {
			b.cursor = night
		}
		for i := 0; i < o.NightEvents; i++ {
			b.fileEvent(b.users[b.faker.IntRange(0, len(b.users)-1)])
			b.cursor = b.cursor.Add(nightSpacing)
		}
	}

	return b.out
}

// Lines renders Records in the log file format
func (g *Generator) Lines() []string {
	records := g.Records()
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = FormatRecord(r)
	}
	return lines
}

// WriteTo writes the generated log, one record per line
func (g *Generator) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64
	for _, line := range g.Lines() {
		n, err := bw.WriteString(line + "\n")
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}

// FormatRecord renders a record as "TIMESTAMP, ACTIVITY, MESSAGE"
func FormatRecord(r record.Record) string {
	return fmt.Sprintf("%s, %s, %s", r.Timestamp.Format(anomaly.TimeLayout), r.Activity, r.Message)
}

// users returns n distinct user names made of characters the actor pattern
// accepts
func users(faker *gofakeit.Faker, n int) []string {
	seen := make(map[string]bool, n)
	names := make([]string, 0, n)
	for len(names) < n {
		name := sanitize(faker.Username())
		if name == "" || seen[name] {
			name = fmt.Sprintf("%s%d", name, len(names))
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_', r == '@', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, name)
}

// pickIndices chooses up to n distinct positions in [0, limit)
func pickIndices(faker *gofakeit.Faker, n, limit int) map[int]bool {
	picked := make(map[int]bool, n)
	if limit <= 0 {
		return picked
	}
	if n > limit {
		n = limit
	}
	for len(picked) < n {
		picked[faker.IntRange(0, limit-1)] = true
	}
	return picked
}

func (b *builder) emit(activity, message string) {
	b.out = append(b.out, record.Record{Timestamp: b.cursor, Activity: activity, Message: message})
}

func (b *builder) baseline() {
	user := b.users[b.faker.IntRange(0, len(b.users)-1)]
	if !b.loggedIn[user] {
		if b.faker.IntRange(0, 9) == 0 {
			b.emit(record.ActivityLoginFailure, fmt.Sprintf("User %s failed to log in", user))
			return
		}
		b.emit(record.ActivityLoginSuccess, fmt.Sprintf("User %s logged in", user))
		b.loggedIn[user] = true
		return
	}

	if b.faker.IntRange(0, 6) == 0 {
		b.emit(record.ActivityLogout, fmt.Sprintf("User %s logged out", user))
		b.loggedIn[user] = false
		return
	}
	b.fileEvent(user)
}

func (b *builder) fileEvent(user string) {
	file := b.faker.Word() + "." + b.faker.FileExtension()
	if b.faker.Bool() {
		b.emit(record.ActivityFileUpload, fmt.Sprintf("User %s uploaded %s", user, file))
		return
	}
	b.emit(record.ActivityFileDelete, fmt.Sprintf("User %s deleted %s", user, file))
}

// burst emits several deletes in the same second
func (b *builder) burst() {
	user := b.users[b.faker.IntRange(0, len(b.users)-1)]
	n := b.faker.IntRange(3, 5)
	for i := 0; i < n; i++ {
		b.emit(record.ActivityFileDelete, fmt.Sprintf("User %s deleted %s.%s", user, b.faker.Word(), b.faker.FileExtension()))
	}
}

// orphanLogout emits a logout for a user with no open session
func (b *builder) orphanLogout() {
	for _, user := range b.users {
		if !b.loggedIn[user] {
			b.emit(record.ActivityLogout, fmt.Sprintf("User %s logged out", user))
			return
		}
	}

	ghost := fmt.Sprintf("ghost%d", len(b.out))
	b.users = append(b.users, ghost)
	b.emit(record.ActivityLogout, fmt.Sprintf("User %s logged out", ghost))
}

// Package logparse turns activity-log text into time-ordered records.
package logparse

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/septivank/activity-anomaly-worker/internal/record"
	"github.com/septivank/activity-anomaly-worker/internal/validator"
)

// maxLineBytes bounds a single log line
const maxLineBytes = 1 << 20

// Warning describes a line that was skipped
type Warning struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// Parser reads "TIMESTAMP, ACTIVITY, MESSAGE" lines
type Parser struct {
	validator *validator.Validator
}

// NewParser creates a parser backed by the given line validator
func NewParser(v *validator.Validator) *Parser {
	return &Parser{validator: v}
}

// ParseLines parses lines already split by the caller. Line numbers in
// warnings are 1-based. Records come back stable-sorted by timestamp.
func (p *Parser) ParseLines(lines []string, receivedAt time.Time) ([]record.Record, []Warning) {
	var (
		records  []record.Record
		warnings []Warning
	)

	for i, line := range lines {
		rec, reason, ok := p.parseLine(line, receivedAt)
		if !ok {
			warnings = append(warnings, Warning{Line: i + 1, Content: strings.TrimSpace(line), Reason: reason})
			continue
		}
		records = append(records, rec)
	}

	sortRecords(records)
	return records, warnings
}

// Parse reads every line from r
func (p *Parser) Parse(r io.Reader, receivedAt time.Time) ([]record.Record, []Warning, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read log lines: %w", err)
	}

	records, warnings := p.ParseLines(lines, receivedAt)
	return records, warnings, nil
}

// ParseFile parses the log file at path
func (p *Parser) ParseFile(path string) ([]record.Record, []Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	return p.Parse(f, time.Time{})
}

func (p *Parser) parseLine(line string, receivedAt time.Time) (record.Record, string, bool) {
	if strings.TrimSpace(line) == "" {
		return record.Record{}, "blank line", false
	}

	fields, ok := validator.SplitLine(line)
	if !ok {
		return record.Record{}, "expected TIMESTAMP, ACTIVITY, MESSAGE", false
	}

	rec, result := p.validator.ValidateLine(fields, receivedAt)
	if !result.IsValid {
		return record.Record{}, result.Reason, false
	}
	return rec, "", true
}

func sortRecords(records []record.Record) {
	if record.IsSorted(records) {
		return
	}
	slices.SortStableFunc(records, func(a, b record.Record) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
}

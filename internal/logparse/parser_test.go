package logparse

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/septivank/activity-anomaly-worker/internal/record"
	"github.com/septivank/activity-anomaly-worker/internal/validator"
)

const sampleLog = `2025-03-14 09:00:01, file_delete, User A deleted a.txt
2025-03-14 09:00:00, LOGIN_SUCCESS, User A logged in

not a log line
2025-03-14 25:00:00, LOGOUT, User A
2025-03-14 09:00:01, FILE_DELETE, User A deleted b.txt, c.txt
2025-03-14 23:00:00, LOGOUT, User B
`

func TestParse(t *testing.T) {
	p := NewParser(validator.NewValidator(0))

	records, warnings, err := p.Parse(strings.NewReader(sampleLog), time.Time{})
	require.NoError(t, err)

	require.Len(t, records, 4)
	assert.True(t, record.IsSorted(records))
	assert.Equal(t, "LOGIN_SUCCESS", records[0].Activity)
	assert.Equal(t, "FILE_DELETE", records[1].Activity)
	assert.Equal(t, "User A deleted a.txt", records[1].Message)
	assert.Equal(t, "User A deleted b.txt, c.txt", records[2].Message)
	assert.Equal(t, "LOGOUT", records[3].Activity)

	require.Len(t, warnings, 3)
	assert.Equal(t, 3, warnings[0].Line)
	assert.Equal(t, "blank line", warnings[0].Reason)
	assert.Equal(t, 4, warnings[1].Line)
	assert.Equal(t, "not a log line", warnings[1].Content)
	assert.Equal(t, 5, warnings[2].Line)
	assert.Contains(t, warnings[2].Reason, "invalid timestamp")
}

func TestParse_StableForEqualTimestamps(t *testing.T) {
	p := NewParser(validator.NewValidator(0))

	records, _ := p.ParseLines([]string{
		"2025-03-14 10:00:00, A, first",
		"2025-03-14 09:00:00, B, earlier",
		"2025-03-14 10:00:00, A, second",
	}, time.Time{})

	require.Len(t, records, 3)
	assert.True(t, record.IsSorted(records))
	assert.Equal(t, "earlier", records[0].Message)
	assert.Equal(t, "first", records[1].Message)
	assert.Equal(t, "second", records[2].Message)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))

	records, warnings, err := NewParser(validator.NewValidator(0)).ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, records, 4)
	assert.Len(t, warnings, 3)
}

func TestParseFile_Missing(t *testing.T) {
	_, _, err := NewParser(validator.NewValidator(0)).ParseFile(filepath.Join(t.TempDir(), "nope.log"))
	assert.Error(t, err)
}

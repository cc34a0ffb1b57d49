package pyre

import (
	"strings"
	"testing"
	"time"
)

func TestRecordFormatIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 30, 45, 123_000_000, time.Local)
	r := newRecord(Warning, 4242, 7, "net", "connection reset", now)

	first := r.Format()
	second := r.Format()

	if first != second {
		t.Fatalf("Format() is not idempotent: %q vs %q", first, second)
	}
}

func TestRecordFormatShape(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 30, 45, 123_000_000, time.Local)
	r := newRecord(Error, 100, 200, "db", "connection lost", now)
	line := r.Format()

	if !strings.HasPrefix(line, "[ERROR] 2026-03-04 12:30:45.123 [100, 200] [db]: connection lost") {
		t.Fatalf("unexpected format: %q", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("line must end in a single newline: %q", line)
	}
}

func TestRecordFormatEmptyTagAndMessage(t *testing.T) {
	now := time.Now()
	r := newRecord(Debug, 1, 1, "", "", now)
	line := r.Format()

	if !strings.Contains(line, "[]: ") {
		t.Fatalf("empty tag/message should format to '[]: ', got %q", line)
	}
}

func TestLevelString(t *testing.T) {
	cases := map[Level]string{
		Debug:   "DEBUG",
		Info:    "INFO",
		Warning: "WARNING",
		Error:   "ERROR",
		Level(99): "UNKNOWN",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", level, got, want)
		}
	}
}

func TestShouldLog(t *testing.T) {
	if shouldLog(Debug, Warning) {
		t.Error("Debug should not pass a Warning gate")
	}
	if !shouldLog(Error, Warning) {
		t.Error("Error should pass a Warning gate")
	}
	if !shouldLog(Warning, Warning) {
		t.Error("a level equal to the minimum should pass")
	}
}

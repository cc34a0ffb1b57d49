// record.go: immutable log record and byte-exact line formatting
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pyre

import (
	"strconv"
	"strings"
	"time"
)

// Record is an immutable unit of log data crossing the producer/writer
// boundary. Once constructed it is never mutated; tag and message are
// copied into owned strings at construction time because the writer
// consumes the record on a different goroutine, potentially long after
// the call site's stack has unwound.
type Record struct {
	Level       Level
	TimestampMs int64
	ProcessID   int
	ThreadID    int64
	Tag         string
	Message     string
}

// newRecord builds an owned Record from producer-supplied inputs.
func newRecord(level Level, pid int, tid int64, tag, message string, now time.Time) Record {
	return Record{
		Level:       level,
		TimestampMs: now.UnixMilli(),
		ProcessID:   pid,
		ThreadID:    tid,
		Tag:         tag,
		Message:     message,
	}
}

// Format renders the record as the byte-exact line:
//
//	[LEVEL] YYYY-MM-DD HH:MM:SS.mmm [pid, tid] [tag]: message\n
//
// Formatting is idempotent: the same Record always yields the same bytes.
func (r Record) Format() string {
	sec := r.TimestampMs / 1000
	ms := r.TimestampMs % 1000
	if ms < 0 {
		ms += 1000
		sec--
	}
	t := time.Unix(sec, ms*int64(time.Millisecond)).Local()

	var b strings.Builder
	b.Grow(len(r.Tag) + len(r.Message) + 48)
	b.WriteByte('[')
	b.WriteString(r.Level.String())
	b.WriteString("] ")
	b.WriteString(t.Format("2006-01-02 15:04:05"))
	b.WriteByte('.')
	writePadded3(&b, int(ms))
	b.WriteString(" [")
	b.WriteString(strconv.Itoa(r.ProcessID))
	b.WriteString(", ")
	b.WriteString(strconv.FormatInt(r.ThreadID, 10))
	b.WriteString("] [")
	b.WriteString(r.Tag)
	b.WriteString("]: ")
	b.WriteString(r.Message)
	b.WriteByte('\n')
	return b.String()
}

func writePadded3(b *strings.Builder, v int) {
	if v < 0 {
		v = 0
	}
	if v > 999 {
		v = 999
	}
	b.WriteByte(byte('0' + v/100))
	b.WriteByte(byte('0' + (v/10)%10))
	b.WriteByte(byte('0' + v%10))
}

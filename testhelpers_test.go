package pyre

import "time"

// timeAt returns a deterministic, strictly increasing timestamp for test
// records, avoiding any dependency on wall-clock resolution.
func timeAt(i int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Millisecond)
}

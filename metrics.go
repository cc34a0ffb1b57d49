// metrics.go: optional Prometheus exposition of internal Stats
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pyre

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics mirrors Stats as Prometheus collectors. It is entirely opt-in:
// a Facade with no registerer never touches the prometheus package. Stats
// carries cumulative totals, but prometheus.Counter only exposes Add, so
// Metrics tracks the last-observed snapshot to convert totals into deltas.
type Metrics struct {
	RecordsEnqueued   prometheus.Counter
	RecordsWritten    prometheus.Counter
	RecordsDropped    prometheus.Counter
	OverflowActivated prometheus.Counter
	Rotations         prometheus.Counter
	WriteFailures     prometheus.Counter
	PrimaryQueueDepth prometheus.Gauge
	OverflowDepth     prometheus.Gauge

	mu   sync.Mutex
	last Stats
}

// NewMetrics registers a fresh set of collectors under registerer. Passing
// the same registerer to two Facades in one process will panic on
// duplicate registration, same as any other promauto usage; callers
// running multiple loggers should pass distinct registerers or labels.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	f := promauto.With(registerer)
	return &Metrics{
		RecordsEnqueued: f.NewCounter(prometheus.CounterOpts{
			Name: "pyre_records_enqueued_total",
			Help: "Total log records accepted by the facade, across both queues.",
		}),
		RecordsWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "pyre_records_written_total",
			Help: "Total log records successfully written to disk.",
		}),
		RecordsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "pyre_records_dropped_total",
			Help: "Total log records dropped because both queues were full.",
		}),
		OverflowActivated: f.NewCounter(prometheus.CounterOpts{
			Name: "pyre_overflow_activated_total",
			Help: "Total records that spilled into the overflow buffer.",
		}),
		Rotations: f.NewCounter(prometheus.CounterOpts{
			Name: "pyre_rotations_total",
			Help: "Total file rotations performed.",
		}),
		WriteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "pyre_write_failures_total",
			Help: "Total records the file store failed to write.",
		}),
		PrimaryQueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "pyre_primary_queue_depth",
			Help: "Current number of records waiting in the primary queue.",
		}),
		OverflowDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "pyre_overflow_queue_depth",
			Help: "Current number of records waiting in the overflow buffer.",
		}),
	}
}

// observe copies a Stats snapshot into the collectors. Called from
// Facade.Flush when metrics are enabled.
func (m *Metrics) observe(s Stats) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RecordsEnqueued.Add(float64(delta(s.Enqueued, m.last.Enqueued)))
	m.RecordsWritten.Add(float64(delta(s.Written, m.last.Written)))
	m.RecordsDropped.Add(float64(delta(s.Dropped, m.last.Dropped)))
	m.OverflowActivated.Add(float64(delta(s.OverflowUsed, m.last.OverflowUsed)))
	m.Rotations.Add(float64(delta(s.Rotations, m.last.Rotations)))
	m.WriteFailures.Add(float64(delta(s.WriteFailures, m.last.WriteFailures)))
	m.PrimaryQueueDepth.Set(float64(s.PrimaryDepth))
	m.OverflowDepth.Set(float64(s.OverflowDepth))

	m.last = s
}

func delta(current, previous uint64) uint64 {
	if current < previous {
		return 0
	}
	return current - previous
}

// queue.go: lock-free bounded MPSC primary queue
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pyre

import (
	"runtime"
	"sync/atomic"
)

// primarySlot is one physical position in the PrimaryQueue ring. Its
// sequence number encodes state relative to the producer ticket that owns
// it: seq == ticket means free for that ticket, seq == ticket+1 means a
// Record is published and readable, seq == ticket+capacity means the
// consumer has released the slot for the next cycle.
type primarySlot struct {
	seq   atomic.Uint64
	value Record
}

// PrimaryQueue is a bounded, lock-free, multi-producer single-consumer ring
// using the Vyukov per-slot sequence algorithm. TryPush is wait-free against
// the consumer and lock-free against other producers. PopAll may only be
// called from a single consumer goroutine.
type PrimaryQueue struct {
	slots    []primarySlot
	capacity uint64
	tail     atomic.Uint64 // producers' ticket allocator
	head     atomic.Uint64 // consumer position
}

// NewPrimaryQueue allocates a queue of the given capacity. Capacity 0 is
// rejected by returning a queue of capacity 1, since the ring must never be
// degenerate on the hot path.
func NewPrimaryQueue(capacity int) *PrimaryQueue {
	if capacity <= 0 {
		capacity = 1
	}
	q := &PrimaryQueue{
		slots:    make([]primarySlot, capacity),
		capacity: uint64(capacity),
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// TryPush attempts to enqueue record. It never blocks and never allocates
// beyond what the caller already allocated for record's fields; it either
// succeeds or reports "full" immediately.
func (q *PrimaryQueue) TryPush(record Record) bool {
	for {
		tail := q.tail.Load()
		head := q.head.Load()

		if tail-head >= q.capacity {
			return false // full
		}

		if q.tail.CompareAndSwap(tail, tail+1) {
			idx := tail % q.capacity
			slot := &q.slots[idx]

			spins := 0
			for slot.seq.Load() != tail {
				spins++
				if spins > 64 {
					runtime.Gosched()
				}
			}

			slot.value = record
			slot.seq.Store(tail + 1)
			return true
		}
		// lost the CAS race, another producer took this ticket; retry
	}
}

// PopAll drains every currently published record. Must be called by exactly
// one consumer goroutine.
func (q *PrimaryQueue) PopAll() []Record {
	head := q.head.Load()
	tail := q.tail.Load()

	if tail <= head {
		return nil
	}
	available := tail - head

	result := make([]Record, 0, available)
	for k := uint64(0); k < available; k++ {
		idx := (head + k) % q.capacity
		slot := &q.slots[idx]

		expected := head + k + 1
		spins := 0
		for slot.seq.Load() != expected {
			spins++
			if spins > 64 {
				runtime.Gosched()
			}
		}

		result = append(result, slot.value)
		slot.value = Record{}
		slot.seq.Store(head + k + q.capacity)
	}

	q.head.Store(head + available)
	return result
}

// Len returns the number of currently published-but-unconsumed records.
// It is a snapshot and may be stale by the time the caller observes it.
func (q *PrimaryQueue) Len() int {
	tail := q.tail.Load()
	head := q.head.Load()
	if tail <= head {
		return 0
	}
	return int(tail - head)
}

// Capacity returns the fixed queue capacity.
func (q *PrimaryQueue) Capacity() int {
	return int(q.capacity)
}

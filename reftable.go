// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dspatch

import "sync"

// refCounter tracks the static fan-out (total) and the number of readers
// served so far in the current tick (consumed) for one output cell in one
// buffer. Component.getOutput only takes mu when total > 1 and the owning
// component has a thread pool with live workers — with a single reader, or
// with no pool dispatching concurrent DoTick calls, there is no concurrent
// access to defend against, and the spec calls for skipping the lock in
// that case on the hot path.
type refCounter struct {
	mu       sync.Mutex
	total    int
	consumed int
}

// RefTable holds one refCounter per output, for a single buffer. Component
// keeps one RefTable per buffer; wires themselves are shared across
// buffers, so total is identical in every buffer's table for a given
// output, while consumed is tracked independently per buffer/tick.
type RefTable struct {
	counters []refCounter
}

// SetOutputCount resizes the table to n counters, preserving existing
// totals (new counters start at zero).
func (rt *RefTable) SetOutputCount(n int) {
	if n == len(rt.counters) {
		return
	}
	if n < len(rt.counters) {
		rt.counters = rt.counters[:n]
		return
	}
	grown := make([]refCounter, n)
	for i := range rt.counters {
		grown[i].total = rt.counters[i].total
		grown[i].consumed = rt.counters[i].consumed
	}
	rt.counters = grown
}

func (rt *RefTable) counter(output int) *refCounter {
	if output < 0 || output >= len(rt.counters) {
		return nil
	}
	return &rt.counters[output]
}

// IncTotal increments the static fan-out for output by one additional wire.
func (rt *RefTable) IncTotal(output int) {
	if c := rt.counter(output); c != nil {
		c.total++
	}
}

// DecTotal decrements the static fan-out for output by one wire.
func (rt *RefTable) DecTotal(output int) {
	if c := rt.counter(output); c != nil && c.total > 0 {
		c.total--
	}
}

// Total returns the static fan-out for output.
func (rt *RefTable) Total(output int) int {
	if c := rt.counter(output); c != nil {
		return c.total
	}
	return 0
}

// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dsplib

import (
	"sync"

	"github.com/mfkiwl/dspatch"
)

// Probe is a sink that records every tick's input values, in order, for
// later inspection by a test. It has no outputs.
//
//	Inputs: caller-defined arity
//	Outputs: (none)
type Probe struct {
	mu      sync.Mutex
	history [][]Sample
}

// Sample is one input cell's recorded value for one tick: (value, present).
type Sample struct {
	Value   any
	Present bool
}

// NewProbe returns an empty Probe. It records as many inputs per tick as
// its Component was given with SetInputCount.
func NewProbe() *Probe {
	return &Probe{}
}

func (p *Probe) Process(inputs *dspatch.SignalBus, _ *dspatch.SignalBus) {
	row := make([]Sample, inputs.SignalCount())
	for i := range row {
		v, ok := inputs.Value(i)
		row[i] = Sample{Value: v, Present: ok}
	}
	p.mu.Lock()
	p.history = append(p.history, row)
	p.mu.Unlock()
}

// History returns a copy of every recorded tick's samples.
func (p *Probe) History() [][]Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]Sample, len(p.history))
	copy(out, p.history)
	return out
}

// Len returns the number of ticks recorded so far.
func (p *Probe) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.history)
}

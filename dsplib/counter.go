// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dsplib

import "github.com/mfkiwl/dspatch"

// Counter emits an incrementing int on every tick, starting at 0.
//
//	Inputs: (none)
//	Outputs: out
func Counter() dspatch.Processor {
	return &counter{}
}

type counter struct {
	n int
}

func (c *counter) Process(_ *dspatch.SignalBus, outputs *dspatch.SignalBus) {
	dspatch.SetValue(outputs, 0, c.n)
	c.n++
}

// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dsplib

import "github.com/mfkiwl/dspatch"

// Offset adds a constant to its input on every tick. An absent input
// leaves the output absent for that tick rather than emitting a bare
// offset value.
//
//	Inputs: in
//	Outputs: out
//	Function: out = in + delta
func Offset(delta int) dspatch.Processor {
	return &offset{delta: delta}
}

type offset struct {
	delta int
}

func (o *offset) Process(inputs *dspatch.SignalBus, outputs *dspatch.SignalBus) {
	v, ok := dspatch.GetValue[int](inputs, 0)
	if !ok {
		return
	}
	dspatch.SetValue(outputs, 0, v+o.delta)
}

// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dsplib

import "github.com/mfkiwl/dspatch"

// Adder sums two int inputs, treating an absent input as zero — this is
// what lets a feedback edge into in1 contribute nothing on the first tick,
// before the loop has produced a value.
//
//	Inputs: in0, in1
//	Outputs: out
//	Function: out = in0 + in1
func Adder() dspatch.Processor {
	return &adder{}
}

type adder struct{}

func (*adder) Process(inputs *dspatch.SignalBus, outputs *dspatch.SignalBus) {
	a, _ := dspatch.GetValue[int](inputs, 0)
	b, _ := dspatch.GetValue[int](inputs, 1)
	dspatch.SetValue(outputs, 0, a+b)
}

// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dsplib

import "github.com/mfkiwl/dspatch"

// PassThrough copies its input to its output unchanged, whatever type it
// holds. An absent input leaves the output absent.
//
//	Inputs: in
//	Outputs: out
func PassThrough() dspatch.Processor {
	return &passThrough{}
}

type passThrough struct{}

func (*passThrough) Process(inputs *dspatch.SignalBus, outputs *dspatch.SignalBus) {
	in, ok := inputs.Get(0)
	if !ok || !in.HasValue() {
		return
	}
	out, ok := outputs.Get(0)
	if !ok {
		return
	}
	out.Set(in)
}

// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dsplib

import "github.com/mfkiwl/dspatch"

// Sporadic emits its tick index on even ticks and leaves its output
// absent on odd ticks, to exercise a downstream reader's "absent" path.
//
//	Inputs: (none)
//	Outputs: out
func Sporadic() dspatch.Processor {
	return &sporadic{}
}

type sporadic struct {
	n int
}

func (s *sporadic) Process(_ *dspatch.SignalBus, outputs *dspatch.SignalBus) {
	if s.n%2 == 0 {
		dspatch.SetValue(outputs, 0, s.n)
	}
	s.n++
}

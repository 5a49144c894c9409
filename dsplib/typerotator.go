// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dsplib

import "github.com/mfkiwl/dspatch"

// TypeRotator emits a different value type on each successive tick,
// cycling through int, float64, string, and []int. It exists to exercise
// Signal's stored type identity across reassignment.
//
//	Inputs: (none)
//	Outputs: out
func TypeRotator() dspatch.Processor {
	return &typeRotator{}
}

type typeRotator struct {
	n int
}

func (t *typeRotator) Process(_ *dspatch.SignalBus, outputs *dspatch.SignalBus) {
	out, ok := outputs.Get(0)
	if !ok {
		return
	}
	switch t.n % 4 {
	case 0:
		out.Emplace(t.n)
	case 1:
		out.Emplace(float64(t.n))
	case 2:
		out.Emplace("tick")
	case 3:
		out.Emplace([]int{t.n, t.n})
	}
	t.n++
}
